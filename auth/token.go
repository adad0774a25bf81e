package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodecConfig configures the session token codec.
type TokenCodecConfig struct {
	// SigningKey is the HMAC key used to sign session tokens.
	SigningKey []byte

	// Issuer is the expected token issuer (iss claim).
	// Default: "meepleai"
	Issuer string

	// TierClaim is the claim carrying the principal tier.
	// Default: "tier"
	TierClaim string

	// RolesClaim is the claim carrying principal roles.
	// Default: "roles"
	RolesClaim string
}

// TokenCodec mints and parses HMAC-signed session tokens.
//
// Tokens carry the session ID, user ID, tier, and expiry. The codec only
// establishes token integrity; revocation is checked against the session
// store by the caller.
type TokenCodec struct {
	config TokenCodecConfig
}

// NewTokenCodec creates a session token codec.
func NewTokenCodec(config TokenCodecConfig) *TokenCodec {
	// Apply defaults
	if config.Issuer == "" {
		config.Issuer = "meepleai"
	}
	if config.TierClaim == "" {
		config.TierClaim = "tier"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	return &TokenCodec{config: config}
}

// Mint creates a signed session token for the given principal.
func (c *TokenCodec) Mint(p *Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":              c.config.Issuer,
		"sub":              p.UserID,
		"sid":              p.SessionID,
		"iat":              now.Unix(),
		"exp":              now.Add(ttl).Unix(),
		c.config.TierClaim: string(p.Tier),
	}
	if len(p.Roles) > 0 {
		claims[c.config.RolesClaim] = p.Roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.config.SigningKey)
}

// Parse validates a session token and extracts the principal it describes.
func (c *TokenCodec) Parse(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return c.config.SigningKey, nil
	}, jwt.WithIssuer(c.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return c.buildPrincipal(claims), nil
}

func (c *TokenCodec) buildPrincipal(claims jwt.MapClaims) *Principal {
	p := &Principal{Tier: TierAuthenticated}

	if sub, ok := claims["sub"].(string); ok {
		p.UserID = sub
		p.ID = sub
	}
	if sid, ok := claims["sid"].(string); ok {
		p.SessionID = sid
	}
	if tier, ok := claims[c.config.TierClaim].(string); ok {
		p.Tier = ParseTier(tier)
	}
	if roles, ok := claims[c.config.RolesClaim].([]interface{}); ok {
		p.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	if exp, ok := claims["exp"].(float64); ok {
		p.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := claims["iat"].(float64); ok {
		p.IssuedAt = time.Unix(int64(iat), 0)
	}

	return p
}

// HashToken returns the opaque hex SHA-256 hash of a session token.
// Caches and logs only ever see this hash, never the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
