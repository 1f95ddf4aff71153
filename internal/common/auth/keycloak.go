// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expirySkew refreshes tokens slightly before Keycloak expires them.
const expirySkew = 30 * time.Second

// KeycloakTokenSource fetches service tokens with the client-credentials flow
// and caches them in memory until shortly before expiry.
type KeycloakTokenSource struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

func NewKeycloakTokenSource(baseURL, realm, clientID, clientSecret string) *KeycloakTokenSource {
	return &KeycloakTokenSource{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
}

// Token implements TokenSource.
func (k *KeycloakTokenSource) Token(ctx context.Context) (Token, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && k.tokenExpiry.After(k.now()) {
		return Token{Value: k.accessToken, ExpiresAt: k.tokenExpiry}, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Token{}, fmt.Errorf("keycloak token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return Token{}, fmt.Errorf("keycloak returned an empty access token")
	}

	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime > 2*expirySkew {
		lifetime -= expirySkew
	}
	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = k.now().Add(lifetime)

	return Token{Value: k.accessToken, ExpiresAt: k.tokenExpiry}, nil
}
