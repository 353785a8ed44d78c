package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const TokenTypeAccess = "access"

// Claims is the part of an access token the dispatch services rely on.
type Claims struct {
	UserID    string
	TokenID   string
	Role      types.UserRole
	ExpiresAt time.Time
}

// TokenService verifies HS256 access tokens issued by the auth service.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

func (s *TokenService) Validate(ctx context.Context, token string) (*Claims, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, ErrExpToken)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	mc, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	if typ, _ := mc["typ"].(string); typ != TokenTypeAccess {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: not an access token", ErrInvalidToken))
	}

	userID, _ := mc["user_id"].(string)
	if userID == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: invalid or missing 'user_id' in token claims", ErrInvalidToken))
	}

	role := types.UserRole(stringClaim(mc, "role"))
	switch role {
	case types.RolePassenger, types.RoleDriver, types.RoleAdmin:
	default:
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role))
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: invalid or missing 'exp' in token claims", ErrInvalidToken))
	}

	return &Claims{
		UserID:    userID,
		TokenID:   stringClaim(mc, "jti"),
		Role:      role,
		ExpiresAt: exp.Time,
	}, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	v, _ := mc[key].(string)
	return v
}
