package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the identity provider. Only the subject
// (user id) and role are consumed here.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 tokens minted by the external identity
// provider with a shared secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token string and returns the identity it
// carries. Any parse or validation failure maps to ErrUnauthenticated.
func (v *TokenVerifier) Verify(tokenString string) (domain.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleStudent, domain.RoleAlumni, domain.RoleAdmin:
	default:
		role = domain.RoleStudent
	}
	return domain.Identity{UserID: claims.Subject, Role: role}, nil
}

// Mint signs a token for an identity. The service itself never issues tokens
// to clients; this exists for local development and tests.
func (v *TokenVerifier) Mint(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type identityKey struct{}

// WithIdentity attaches a verified identity to the context.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}
