package dto

type GateDecisionResponse struct {
	Feature      string `json:"feature"`
	Allowed      bool   `json:"allowed"`
	RequiredTier string `json:"required_tier"`
	Presentation string `json:"presentation"`
	Prompt       string `json:"prompt,omitempty"`
	UpgradePath  string `json:"upgrade_path,omitempty"`
}

type FeatureLockedResponse struct {
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	Decision GateDecisionResponse `json:"decision"`
}
