package auth

import (
	"context"
	"slices"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// AuthService turns bearer tokens into users. Issuing tokens belongs to a
// separate auth service.
type AuthService struct {
	tokens TokenValidator
	log    logger.Logger
}

func NewAuthService(tokens TokenValidator, log logger.Logger) *AuthService {
	return &AuthService{tokens: tokens, log: log}
}

// RoleCheck validates token and returns the user it was issued to.
func (s *AuthService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		s.log.Debug(ctx, "access token rejected", "reason", err.Error())
		return nil, err
	}
	return &models.User{ID: claims.UserID, Role: claims.Role}, nil
}

// Authorize reports ErrActionForbidden unless user has one of roles.
func Authorize(user *models.User, roles ...types.UserRole) error {
	if user.IsAnonymous() || !slices.Contains(roles, user.Role) {
		return ErrActionForbidden
	}
	return nil
}
