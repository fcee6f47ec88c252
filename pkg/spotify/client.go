package spotify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAPIURL      = "https://api.spotify.com/v1"
	DefaultAccountsURL = "https://accounts.spotify.com/api/token"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}

	return nil
}

// TokenStore persists the per-host tokens obtained by the OAuth handshake.
type TokenStore interface {
	GetToken(ctx context.Context, hostId string) (Token, error)
	SetToken(ctx context.Context, hostId string, token Token) error
}

type Config struct {
	ClientId     string
	ClientSecret string
	APIURL       string
	AccountsURL  string
	HTTPClient   *http.Client
}

type Client struct {
	clientId     string
	clientSecret string
	apiURL       string
	accountsURL  string
	httpClient   *http.Client
	tokens       TokenStore
	now          func() time.Time
	// one lock per host so a slow refresh never blocks other jams
	refreshLocks sync.Map
}

func New(cfg *Config, tokens TokenStore) *Client {
	c := &Client{
		clientId:     cfg.ClientId,
		clientSecret: cfg.ClientSecret,
		apiURL:       strings.TrimSuffix(cfg.APIURL, "/"),
		accountsURL:  cfg.AccountsURL,
		httpClient:   cfg.HTTPClient,
		tokens:       tokens,
		now:          time.Now,
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.accountsURL == "" {
		c.accountsURL = DefaultAccountsURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return c
}

func (c *Client) accessToken(ctx context.Context, hostId string, force bool) (string, error) {
	lock, _ := c.refreshLocks.LoadOrStore(hostId, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	token, err := c.tokens.GetToken(ctx, hostId)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	if !force && token.Valid(c.now()) {
		return token.AccessToken, nil
	}

	refreshed, err := c.refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := c.tokens.SetToken(ctx, hostId, refreshed); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return refreshed.AccessToken, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (Token, error) {
	if refreshToken == "" {
		return Token{}, fmt.Errorf("no refresh token: %w", ErrUnauthorized)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(c.clientId + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Token{}, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	// the accounts service only sometimes rotates the refresh token
	if tokenResp.RefreshToken == "" {
		tokenResp.RefreshToken = refreshToken
	}

	return Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		Expiry:       c.now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second),
	}, nil
}

func (c *Client) do(ctx context.Context, hostId, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	// a rejected token is refreshed once and the request replayed
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx, hostId, attempt > 0)
		if err != nil {
			return err
		}

		err = c.send(ctx, token, method, path, query, payload, out)
		if attempt == 0 && errors.Is(err, ErrUnauthorized) {
			continue
		}

		return err
	}
}

func (c *Client) send(ctx context.Context, token, method, path string, query url.Values, payload []byte, out any) error {
	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
