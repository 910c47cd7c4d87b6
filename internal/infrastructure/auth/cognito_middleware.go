package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey       = "user_id"
	organizationKey = "organization_id"

	// Cognito custom attributes mapping a signed-in identity onto a POS user.
	claimUserID         = "custom:user_id"
	claimOrganizationID = "custom:organization_id"
)

// jwkSet is the subset of a Cognito JWKS document needed to verify RS256 tokens.
type jwkSet struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

type jwkCache struct {
	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	expiresAt   time.Time
	lastRefresh time.Time
	ttl         time.Duration
	minInterval time.Duration
	url         string
	client      *http.Client
}

func newJWKCache(url string, ttl time.Duration) *jwkCache {
	return &jwkCache{
		keys:        map[string]*rsa.PublicKey{},
		ttl:         ttl,
		minInterval: 30 * time.Second,
		url:         url,
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

// keyForKid returns the signing key for kid, refreshing the key set when it
// expired or does not know kid. Refreshes for unknown kids are throttled.
func (c *jwkCache) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Now().Before(c.expiresAt)
	throttled := time.Since(c.lastRefresh) < c.minInterval
	c.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if !ok && fresh && throttled {
		return nil, fmt.Errorf("jwk %q not found", kid)
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("jwk %q not found", kid)
	}
	return key, nil
}

func (c *jwkCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if pub, err := rsaPublicKey(k.N, k.E); err == nil {
			keys[k.Kid] = pub
		}
	}
	if len(keys) == 0 {
		return errors.New("jwks contains no usable RSA keys")
	}
	now := time.Now()
	c.mu.Lock()
	c.keys = keys
	c.expiresAt = now.Add(c.ttl)
	c.lastRefresh = now
	c.mu.Unlock()
	return nil
}

// rsaPublicKey decodes the base64url modulus and exponent of a JWK.
func rsaPublicKey(modulus, exponent string) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(modulus)
	if err != nil || len(n) == 0 {
		return nil, fmt.Errorf("invalid modulus: %v", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(exponent)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("invalid exponent: %v", err)
	}
	exp := new(big.Int).SetBytes(e)
	if exp.Sign() == 0 {
		return nil, errors.New("invalid exponent: zero")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// CognitoMiddleware authenticates bearer tokens issued by a Cognito user pool
// and exposes the acting POS user to handlers.
type CognitoMiddleware struct {
	issuer string
	cache  *jwkCache
}

func NewCognitoMiddleware(userPoolID, region string) *CognitoMiddleware {
	issuer := "https://cognito-idp." + region + ".amazonaws.com/" + userPoolID
	return newCognitoMiddleware(issuer, issuer+"/.well-known/jwks.json")
}

func newCognitoMiddleware(issuer, jwksURL string) *CognitoMiddleware {
	return &CognitoMiddleware{
		issuer: issuer,
		cache:  newJWKCache(jwksURL, 15*time.Minute),
	}
}

func (m *CognitoMiddleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization token"})
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if tokenString == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization token"})
		}
		ctx := c.Request().Context()
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("missing kid")
			}
			return m.cache.keyForKid(ctx, kid)
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(m.issuer),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		userID, _ := claims[claimUserID].(string)
		if userID == "" {
			userID, _ = claims["sub"].(string)
		}
		if userID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token has no subject"})
		}
		c.Set(userIDKey, userID)
		if orgID, ok := claims[claimOrganizationID].(string); ok && orgID != "" {
			c.Set(organizationKey, orgID)
		}
		return next(c)
	}
}
