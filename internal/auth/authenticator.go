package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AlgorithmRS256 is the only token signing algorithm accepted by the
// authenticator.
const AlgorithmRS256 = "RS256"

// iatSkew is the tolerated clock skew for the iat claim.
const iatSkew = 60 * time.Second

// Config holds the OIDC settings required to validate bearer tokens.
type Config struct {
	Issuer           string
	Audience         string
	ClientID         string
	JWKSURL          string
	AuthorizationURL string
	Algorithms       []string
	RequiredScope    string
}

// Validate checks that all required settings are present and that the
// accepted algorithm list only names RS256.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"oidc-issuer", c.Issuer},
		{"oidc-audience", c.Audience},
		{"oidc-client-id", c.ClientID},
		{"oidc-jwks-url", c.JWKSURL},
	}
	var missing []string
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("OIDC authentication is enabled but missing required settings: %s", strings.Join(missing, ", "))
	}

	if len(c.Algorithms) == 0 {
		return errors.New("OIDC algorithm list must not be empty")
	}
	for _, alg := range c.Algorithms {
		if alg != AlgorithmRS256 {
			return fmt.Errorf("unsupported OIDC algorithm %q: only RS256 is supported", alg)
		}
	}
	return nil
}

// KeyResolver looks up the RSA public key for a token's key ID.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Authenticator validates RS256 bearer tokens against an OIDC issuer.
type Authenticator struct {
	config Config
	keys   KeyResolver
	parser *jwt.Parser
	now    func() time.Time
}

// New builds an authenticator from config. httpClient is used for JWKS
// fetches and may be nil.
func New(config Config, httpClient *http.Client) (*Authenticator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.AuthorizationURL == "" {
		config.AuthorizationURL = strings.TrimRight(config.Issuer, "/") + "/authorize"
	}

	return &Authenticator{
		config: config,
		keys:   NewJWKSClient(config.JWKSURL, httpClient),
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}, nil
}

// ValidateAuthorizationHeader validates the Authorization header of an
// incoming request and returns the token claims on success.
func (a *Authenticator) ValidateAuthorizationHeader(ctx context.Context, header string) (jwt.MapClaims, *Error) {
	if header == "" {
		return nil, invalidRequest("Missing bearer token")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, invalidRequest("Authorization header must be a bearer token")
	}

	return a.ValidateToken(ctx, token)
}

// ValidateToken verifies the token signature and registered claims.
func (a *Authenticator) ValidateToken(ctx context.Context, tokenString string) (jwt.MapClaims, *Error) {
	token, err := a.parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return a.resolveKey(ctx, token)
	})
	if err != nil {
		var authErr *Error
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, invalidToken("Token is malformed")
		}
		return nil, invalidToken("Token is invalid or expired")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, invalidToken("Token is malformed")
	}
	if authErr := a.validateRegisteredClaims(claims); authErr != nil {
		return nil, authErr
	}

	if a.config.RequiredScope != "" && !hasScope(claims, a.config.RequiredScope) {
		return nil, &Error{
			Message:    fmt.Sprintf("Token missing required scope: %s", a.config.RequiredScope),
			Code:       ErrorInsufficientScope,
			StatusCode: http.StatusForbidden,
		}
	}

	return claims, nil
}

// ChallengeHeader renders the WWW-Authenticate value advertised on
// rejected requests.
func (a *Authenticator) ChallengeHeader(errorCode, description string) string {
	parts := []string{
		`Bearer realm="vic-rego-estimator"`,
		fmt.Sprintf("authorization_uri=%q", a.config.AuthorizationURL),
		fmt.Sprintf("resource=%q", a.config.Audience),
		fmt.Sprintf("client_id=%q", a.config.ClientID),
		fmt.Sprintf("error=%q", errorCode),
		fmt.Sprintf("error_description=%q", description),
	}
	if a.config.RequiredScope != "" {
		parts = append(parts, fmt.Sprintf("scope=%q", a.config.RequiredScope))
	}
	return strings.Join(parts, ", ")
}

func (a *Authenticator) resolveKey(ctx context.Context, token *jwt.Token) (any, error) {
	alg := token.Method.Alg()
	if !containsString(a.config.Algorithms, alg) {
		return nil, invalidToken(fmt.Sprintf("Unsupported signing algorithm: %s", alg))
	}
	if alg != AlgorithmRS256 {
		return nil, invalidToken("Only RS256 tokens are supported")
	}

	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, invalidToken("Token header missing 'kid'")
	}
	return a.keys.Key(ctx, kid)
}

func (a *Authenticator) validateRegisteredClaims(claims jwt.MapClaims) *Error {
	now := a.now().Unix()

	exp, ok := numericClaim(claims, "exp")
	if !ok || now >= exp {
		return invalidToken("Token is invalid or expired")
	}
	iat, ok := numericClaim(claims, "iat")
	if !ok || iat > now+int64(iatSkew.Seconds()) {
		return invalidToken("Token has invalid issue timestamp")
	}
	if iss, _ := claims["iss"].(string); iss != a.config.Issuer {
		return invalidToken("Token issuer mismatch")
	}
	if !containsString(audiences(claims), a.config.Audience) {
		return invalidToken("Token audience mismatch")
	}
	return nil
}

// Subject returns the sub claim, or the empty string when absent.
func Subject(claims jwt.MapClaims) string {
	sub, _ := claims["sub"].(string)
	return sub
}

func numericClaim(claims jwt.MapClaims, name string) (int64, bool) {
	switch v := claims[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func audiences(claims jwt.MapClaims) []string {
	switch v := claims["aud"].(type) {
	case string:
		return []string{v}
	case []any:
		result := make([]string, 0, len(v))
		for _, aud := range v {
			if s, ok := aud.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// hasScope reports whether the required scope appears in the space
// delimited scope claim or the scp claim.
func hasScope(claims jwt.MapClaims, required string) bool {
	if scope, ok := claims["scope"].(string); ok {
		for _, s := range strings.Fields(scope) {
			if s == required {
				return true
			}
		}
	}
	switch scp := claims["scp"].(type) {
	case string:
		for _, s := range strings.Fields(scp) {
			if s == required {
				return true
			}
		}
	case []any:
		for _, entry := range scp {
			if s, ok := entry.(string); ok && s == required {
				return true
			}
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
