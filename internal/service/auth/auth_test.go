package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

const secret = "test-secret"

func sign(t *testing.T, key string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func accessClaims(userID string, role types.UserRole, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"typ":     TokenTypeAccess,
		"jti":     "t1",
		"user_id": userID,
		"role":    role.String(),
		"exp":     exp.Unix(),
	}
}

func TestTokenService_Validate(t *testing.T) {
	s := NewTokenService(secret)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	refresh := accessClaims("u1", types.RolePassenger, future)
	refresh["typ"] = "refresh"
	noUser := accessClaims("", types.RolePassenger, future)
	badRole := accessClaims("u1", "PILOT", future)
	noExp := accessClaims("u1", types.RoleDriver, future)
	delete(noExp, "exp")

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", sign(t, secret, jwt.SigningMethodHS256, accessClaims("c1", types.RoleDriver, future)), nil},
		{"expired", sign(t, secret, jwt.SigningMethodHS256, accessClaims("c1", types.RoleDriver, time.Now().Add(-time.Minute))), ErrExpToken},
		{"wrong secret", sign(t, "other", jwt.SigningMethodHS256, accessClaims("c1", types.RoleDriver, future)), ErrInvalidToken},
		{"wrong method", sign(t, secret, jwt.SigningMethodHS512, accessClaims("c1", types.RoleDriver, future)), ErrInvalidToken},
		{"refresh token", sign(t, secret, jwt.SigningMethodHS256, refresh), ErrInvalidToken},
		{"missing user", sign(t, secret, jwt.SigningMethodHS256, noUser), ErrInvalidToken},
		{"unknown role", sign(t, secret, jwt.SigningMethodHS256, badRole), ErrInvalidToken},
		{"missing exp", sign(t, secret, jwt.SigningMethodHS256, noExp), ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := s.Validate(ctx, tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if claims.UserID != "c1" || claims.Role != types.RoleDriver || claims.TokenID != "t1" {
				t.Fatalf("unexpected claims %+v", claims)
			}
		})
	}
}

func TestAuthService_RoleCheck(t *testing.T) {
	s := NewAuthService(NewTokenService(secret), logger.Nop())
	token := sign(t, secret, jwt.SigningMethodHS256, accessClaims("u1", types.RolePassenger, time.Now().Add(time.Hour)))

	user, err := s.RoleCheck(context.Background(), token)
	if err != nil {
		t.Fatalf("RoleCheck: %v", err)
	}
	if user.ID != "u1" || user.Role != types.RolePassenger {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestAuthorize(t *testing.T) {
	driver := &models.User{ID: "c1", Role: types.RoleDriver}

	if err := Authorize(driver, types.RoleDriver); err != nil {
		t.Fatalf("driver denied: %v", err)
	}
	if err := Authorize(driver, types.RolePassenger); !errors.Is(err, ErrActionForbidden) {
		t.Fatalf("expected ErrActionForbidden, got %v", err)
	}
	if err := Authorize(models.AnonymousUser(), types.RoleDriver); !errors.Is(err, ErrActionForbidden) {
		t.Fatalf("anonymous user allowed")
	}
}
