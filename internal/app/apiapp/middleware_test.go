package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	entsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/entitlements"
	gatesvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/gate"
)

func TestRequireRoleAllowsCaseInsensitiveMatch(t *testing.T) {
	mw := RequireRole("OWNER", "SUPPORT")

	req := httptest.NewRequest(http.MethodPost, "/admin/users/5/quota/reset", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: 1,
		SID:    "sid-1",
		Role:   "support",
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequireRoleRejectsForbiddenRole(t *testing.T) {
	mw := RequireRole("OWNER", "SUPPORT")

	req := httptest.NewRequest(http.MethodPost, "/admin/users/5/quota/reset", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: 2,
		SID:    "sid-2",
		Role:   "user",
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called for forbidden role")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireRoleRejectsAnonymous(t *testing.T) {
	mw := RequireRole("OWNER")

	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without identity")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	authService := authsvc.NewService(authsvc.NewJWTManager("secret", "tgapp", time.Minute))
	mw := AuthMiddleware(authService, zap.NewNop())

	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without token")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/entitlements", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	authService := authsvc.NewService(authsvc.NewJWTManager("secret", "tgapp", time.Minute))
	issued, err := authService.Issue(77, enums.RoleOwner)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	mw := AuthMiddleware(authService, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/entitlements", nil)
	req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok || identity.UserID != 77 || identity.Role != "OWNER" {
			t.Fatalf("unexpected identity: %+v ok=%v", identity, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequireFeatureAnswersPaymentRequired(t *testing.T) {
	ents := entsvc.NewService(nil, nil, entsvc.Config{}, nil)
	gate := gatesvc.New(ents, gatesvc.StaticNavigator{Path: "/subscription"})
	mw := RequireFeature(gate, enums.FeatureVideoCalls)

	req := httptest.NewRequest(http.MethodPost, "/v1/calls/video", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 3, Role: "USER"}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called for a locked feature")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusPaymentRequired)
	}

	var payload struct {
		Code     string `json:"code"`
		Decision struct {
			RequiredTier string `json:"required_tier"`
			UpgradePath  string `json:"upgrade_path"`
		} `json:"decision"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "FEATURE_LOCKED" || payload.Decision.RequiredTier != "gold" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Decision.UpgradePath != "/subscription?tier=gold" {
		t.Fatalf("unexpected upgrade path: %q", payload.Decision.UpgradePath)
	}
}

func TestRequireFeaturePassesEntitledUser(t *testing.T) {
	ents := entsvc.NewService(nil, nil, entsvc.Config{}, nil)
	if err := ents.SetTier(context.Background(), 4, enums.TierPremium, nil); err != nil {
		t.Fatalf("set tier: %v", err)
	}
	mw := RequireFeature(gatesvc.New(ents, nil), enums.FeatureAdvancedFilters)

	req := httptest.NewRequest(http.MethodGet, "/v1/filters/advanced", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 4, Role: "USER"}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}
