package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

const jwksFetchTimeout = 5 * time.Second

// JWKSClient fetches signing keys from a JWKS endpoint. Keys are fetched
// per validation rather than cached so a key rotation at the issuer is
// picked up immediately.
type JWKSClient struct {
	url    string
	client *http.Client
}

// NewJWKSClient builds a client for the given JWKS URL. httpClient may be
// nil, in which case a client with a short timeout is used.
func NewJWKSClient(url string, httpClient *http.Client) *JWKSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: jwksFetchTimeout}
	}
	return &JWKSClient{url: url, client: httpClient}
}

// Key returns the RSA public key for the given key ID.
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range set.Keys {
		if key.Kid == kid {
			return parseRSAPublicKey(key)
		}
	}
	return nil, invalidToken("Unable to find signing key for token")
}

func (c *JWKSClient) fetch(ctx context.Context) (*jwkSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create JWKS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch JWKS: unexpected status: %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}
	return &set, nil
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseRSAPublicKey(key jwk) (*rsa.PublicKey, error) {
	if key.Kty != "RSA" {
		return nil, invalidToken("Only RSA JWK keys are supported")
	}
	if key.N == "" || key.E == "" {
		return nil, fmt.Errorf("JWK %q missing modulus or exponent", key.Kid)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("decode JWK modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("decode JWK exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
