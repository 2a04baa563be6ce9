package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("no verification key configured")
)

// Claims represents JWT claims issued by the marketplace auth service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"type,omitempty"` // "access" or "refresh"
}

// Principal returns the user the token was issued to.
func (c *Claims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

// KeyConfig selects the verification key. Exactly one of Secret (HS256) or
// PublicKeyPEM (RS256) should be set.
type KeyConfig struct {
	Secret       string        `mapstructure:"jwt_secret"`
	PublicKeyPEM string        `mapstructure:"jwt_public_key"`
	Issuer       string        `mapstructure:"issuer"`
	Leeway       time.Duration `mapstructure:"leeway"`
}

// StaticVerifier verifies tokens against a fixed key. It holds no mutable
// state and is safe for concurrent use.
type StaticVerifier struct {
	hmacKey   []byte
	rsaKey    *rsa.PublicKey
	parserOps []jwt.ParserOption
}

// NewVerifier builds a StaticVerifier from cfg.
func NewVerifier(cfg KeyConfig) (*StaticVerifier, error) {
	v := &StaticVerifier{}

	switch {
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		v.rsaKey = key
		v.parserOps = append(v.parserOps, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case cfg.Secret != "":
		v.hmacKey = []byte(cfg.Secret)
		v.parserOps = append(v.parserOps, jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}))
	default:
		return nil, ErrMissingKey
	}

	if cfg.Issuer != "" {
		v.parserOps = append(v.parserOps, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		v.parserOps = append(v.parserOps, jwt.WithLeeway(cfg.Leeway))
	}
	v.parserOps = append(v.parserOps, jwt.WithExpirationRequired())

	return v, nil
}

// Verify validates a token and returns claims.
func (v *StaticVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyFunc, v.parserOps...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != "" && claims.Type != "access" {
		return nil, ErrInvalidToken
	}
	if claims.Principal() == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (v *StaticVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.rsaKey == nil {
			return nil, ErrInvalidToken
		}
		return v.rsaKey, nil
	case *jwt.SigningMethodHMAC:
		if v.hmacKey == nil {
			return nil, ErrInvalidToken
		}
		return v.hmacKey, nil
	default:
		return nil, ErrInvalidToken
	}
}

// SignHS256 issues an access token signed with secret. It is used by local
// tooling and tests; production tokens come from the auth service.
func SignHS256(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Type:   "access",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
