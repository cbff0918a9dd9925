package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var errClaimsMissing = errors.New("user claims not found in context or invalid type")

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RolePlayer    Role = "player"
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errClaimsMissing
	}
	return claims, nil
}

// GetUserIDFromContext возвращает положительный целый user_id из токена.
// JSON числа приходят как float64.
func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	raw, ok := claims[jwtClaimUserID].(float64)
	if !ok || raw != float64(int(raw)) || raw <= 0 {
		return 0, fmt.Errorf("'%s' claim must be a positive integer, got %v", jwtClaimUserID, claims[jwtClaimUserID])
	}
	return int(raw), nil
}

func GetUserRoleFromContext(ctx context.Context) (Role, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	role, _ := claims[jwtClaimRole].(string)
	switch Role(role) {
	case RoleAdmin, RoleOrganizer, RolePlayer:
		return Role(role), nil
	}
	return "", fmt.Errorf("invalid '%s' claim: %v", jwtClaimRole, claims[jwtClaimRole])
}
