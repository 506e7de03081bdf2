package enums

import (
	"errors"
	"strings"
)

var ErrUnknownFeature = errors.New("unknown feature")

// Feature names one boolean capability of a tier. Quota fields such as the
// messaging limit are not features and do not parse.
type Feature string

const (
	FeatureMessageViewing   Feature = "messageViewing"
	FeatureMessageOpening   Feature = "messageOpening"
	FeatureAudioCalls       Feature = "audioCalls"
	FeatureVideoCalls       Feature = "videoCalls"
	FeatureUnlimitedUploads Feature = "unlimitedUploads"
	FeatureVirtualClubs     Feature = "virtualClubs"
	FeatureAdvancedFilters  Feature = "advancedFilters"
	FeatureProfileBoost     Feature = "profileBoost"
	FeatureSeeWhoLikedYou   Feature = "seeWhoLikedYou"
	FeatureUnlimitedSwipes  Feature = "unlimitedSwipes"
	FeatureRewind           Feature = "rewind"
)

var allFeatures = []Feature{
	FeatureMessageViewing,
	FeatureMessageOpening,
	FeatureAudioCalls,
	FeatureVideoCalls,
	FeatureUnlimitedUploads,
	FeatureVirtualClubs,
	FeatureAdvancedFilters,
	FeatureProfileBoost,
	FeatureSeeWhoLikedYou,
	FeatureUnlimitedSwipes,
	FeatureRewind,
}

func Features() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}

func (f Feature) Valid() bool {
	for _, known := range allFeatures {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFeature accepts the canonical camelCase name case-insensitively.
func ParseFeature(raw string) (Feature, error) {
	value := strings.TrimSpace(raw)
	for _, known := range allFeatures {
		if strings.EqualFold(string(known), value) {
			return known, nil
		}
	}
	return "", ErrUnknownFeature
}
