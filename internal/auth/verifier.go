package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

var ErrInvalidToken = errors.New("invalid token")

// VerifierConfig configures token verification
type VerifierConfig struct {
	// JWKSURL is the identity provider's key set endpoint
	JWKSURL string

	// Issuer and Audience are matched against the token claims when set
	Issuer   string
	Audience string

	// DevSecret enables HS256 verification for local development. Leave
	// empty in production so only asymmetric algorithms are accepted.
	DevSecret []byte
}

// Verifier validates bearer JWTs against the identity provider's JWKS.
// Keys are fetched once and refreshed in the background by the jwk cache,
// so verification itself never blocks on the network.
type Verifier struct {
	config VerifierConfig
	cache  *jwk.Cache
}

// NewVerifier creates a verifier and registers the JWKS endpoint with the
// background refresh cache. The context bounds the cache's lifetime.
func NewVerifier(ctx context.Context, config VerifierConfig) (*Verifier, error) {
	v := &Verifier{config: config}

	if config.JWKSURL != "" {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(config.JWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
		}
		v.cache = cache
	}

	if v.cache == nil && len(config.DevSecret) == 0 {
		return nil, errors.New("verifier needs a JWKS URL or a dev secret")
	}
	return v, nil
}

// Verify parses and verifies a bearer token, returning its claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256", "HS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		options = append(options, jwt.WithAudience(v.config.Audience))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.keyFor(ctx, token)
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// keyFor resolves the verification key for a parsed token header
func (v *Verifier) keyFor(ctx context.Context, token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.config.DevSecret) == 0 {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return v.config.DevSecret, nil
	}

	if v.cache == nil {
		return nil, errors.New("no JWKS endpoint configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token header missing kid")
	}

	set, err := v.cache.Get(ctx, v.config.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	key, found := set.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("no key with id %q in JWKS", kid)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to materialize public key: %w", err)
	}
	return raw, nil
}
