package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/config"
)

// Allowed skew between terminal and server clocks.
const clockLeeway = 30 * time.Second

var (
	errNoSecret      = errors.New("jwt secret is required")
	errNoEmployee    = errors.New("employee id is required")
	signingMethodPOS = jwt.SigningMethodHS256
)

// MintAccessToken signs a terminal token for payload that expires
// cfg.ExpirationMinutes after now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}

	claims := AccessTokenClaims{
		EmployeeID: payload.EmployeeID,
		BranchID:   payload.BranchID,
		Role:       payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.EmployeeID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        strings.TrimSpace(payload.JTI),
		},
	}
	if err := claims.check(); err != nil {
		return "", err
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(signingMethodPOS, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then the POS
// claims themselves.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethodPOS.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if err := claims.check(); err != nil {
		return nil, fmt.Errorf("token claims: %w", err)
	}
	return claims, nil
}
