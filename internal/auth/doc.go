// Package auth validates OIDC bearer tokens for protected MCP endpoints.
//
// Only RS256 tokens are accepted. Signing keys are resolved from the
// issuer's JWKS endpoint on every validation, so key rotations take
// effect without a restart. Validation failures carry a challenge error
// code and HTTP status so the HTTP layer can emit a WWW-Authenticate
// header that tells clients how to obtain a usable token.
//
// Typical usage:
//
//	authenticator, err := auth.New(auth.Config{
//	    Issuer:     "https://example.auth0.com",
//	    Audience:   "https://vic-rego-estimator.example.com",
//	    ClientID:   "client-id",
//	    JWKSURL:    "https://example.auth0.com/.well-known/jwks.json",
//	    Algorithms: []string{auth.AlgorithmRS256},
//	}, nil)
//	if err != nil {
//	    return err
//	}
//	claims, authErr := authenticator.ValidateAuthorizationHeader(ctx, r.Header.Get("Authorization"))
package auth
