package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/account"
	"github.com/rollforge/tavernkeep/pkg/clock"
)

// Claims is the token payload. The role flags are cumulative: an admin is
// also trusted.
type Claims struct {
	Email   string `json:"email"`
	Admin   bool   `json:"tavern_admin"`
	Trusted bool   `json:"tavern_trusted"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and parses HS256 access tokens.
type TokenGenerator struct {
	secret   []byte
	issuer   string
	audience string
	clock    clock.Clock
}

func NewTokenGenerator(secret, issuer, audience string, clk clock.Clock) *TokenGenerator {
	return &TokenGenerator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		clock:    clk,
	}
}

// Generate signs a token for the account with the given lifetime.
func (g *TokenGenerator) Generate(acct account.Account, lifetime time.Duration) (string, time.Time, error) {
	now := g.clock.Now()
	expiresAt := now.Add(lifetime)

	claims := Claims{
		Email:   acct.Email,
		Admin:   acct.Role == account.RoleAdmin,
		Trusted: acct.Role == account.RoleAdmin || acct.Role == account.RoleTrusted,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   acct.Email,
			Issuer:    g.issuer,
			Audience:  jwt.ClaimStrings{g.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token string and returns its claims.
func (g *TokenGenerator) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	return &claims, nil
}
