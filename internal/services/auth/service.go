package auth

import (
	"context"
	"fmt"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
)

// Service validates access tokens issued by the identity service. Tokens are
// self-contained; there is no session lookup.
type Service struct {
	jwt *JWTManager
}

func NewService(jwtManager *JWTManager) *Service {
	return &Service{jwt: jwtManager}
}

func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (AccessClaims, error) {
	if s.jwt == nil {
		return AccessClaims{}, ErrUnauthorized
	}
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	claims.Role = string(enums.ParseRole(claims.Role))
	return claims, nil
}

// Issue signs a token for userID with a fresh session id. Used by local
// tooling and tests.
func (s *Service) Issue(userID int64, role enums.Role) (IssuedToken, error) {
	if s.jwt == nil {
		return IssuedToken{}, fmt.Errorf("jwt manager is nil")
	}
	if userID <= 0 {
		return IssuedToken{}, ErrInvalidInput
	}

	sid, err := NewSessionID()
	if err != nil {
		return IssuedToken{}, err
	}
	if !role.Valid() {
		role = enums.RoleUser
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(userID, sid, string(role))
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Claims: AccessClaims{
			UserID:    userID,
			SID:       sid,
			Role:      string(role),
			ExpiresAt: expiresAt,
		},
	}, nil
}
