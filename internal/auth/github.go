package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
)

const (
	githubDefaultBaseURL = "https://github.com"
	githubDefaultScopes  = "repo,workflow"
	deviceGrantType      = "urn:ietf:params:oauth:grant-type:device_code"
)

// GitHubDeviceFlow implements the OAuth 2.0 Device Authorization Flow for GitHub.
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
type GitHubDeviceFlow struct {
	clientID string
	baseURL  string
	scopes   string
	client   *http.Client
}

// NewGitHubDeviceFlow creates a GitHubDeviceFlow for the given OAuth App client ID.
// Pass an empty baseURL to use github.com. Pass a test server URL in tests.
func NewGitHubDeviceFlow(clientID string, baseURL string) *GitHubDeviceFlow {
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}
	return &GitHubDeviceFlow{
		clientID: clientID,
		baseURL:  baseURL,
		scopes:   githubDefaultScopes,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Login runs the whole flow: it requests a code, hands it to prompt so the
// user can authorize, then polls until GitHub grants or refuses the token.
func (f *GitHubDeviceFlow) Login(ctx context.Context, prompt func(DeviceCodeResponse)) (TokenResponse, error) {
	if f.clientID == "" {
		return TokenResponse{}, fmt.Errorf("github client_id is not configured")
	}
	code, err := f.RequestCode(ctx)
	if err != nil {
		return TokenResponse{}, err
	}
	if prompt != nil {
		prompt(code)
	}
	if code.ExpiresIn > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(code.ExpiresIn)*time.Second)
		defer cancel()
	}
	return f.PollToken(ctx, code.DeviceCode, code.Interval)
}

// RequestCode requests a device code and user code from GitHub.
// The returned DeviceCodeResponse.UserCode must be shown to the user along with VerificationURI.
func (f *GitHubDeviceFlow) RequestCode(ctx context.Context) (DeviceCodeResponse, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("scope", f.scopes)

	var raw struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := f.postForm(ctx, "/login/device/code", data, &raw); err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("requesting device code: %w", err)
	}
	return DeviceCodeResponse{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}, nil
}

// PollToken polls the GitHub token endpoint until an access token is granted or an error occurs.
// interval is the polling interval in seconds; 0 polls without waiting.
// Handles authorization_pending, slow_down, expired_token, and access_denied error codes.
func (f *GitHubDeviceFlow) PollToken(ctx context.Context, deviceCode string, interval int) (TokenResponse, error) {
	if interval < 0 {
		interval = 0
	}
	for {
		if err := wait(ctx, interval); err != nil {
			return TokenResponse{}, err
		}

		data := url.Values{}
		data.Set("client_id", f.clientID)
		data.Set("device_code", deviceCode)
		data.Set("grant_type", deviceGrantType)

		var raw struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			Scope       string `json:"scope"`
			Error       string `json:"error"`
		}
		if err := f.postForm(ctx, "/login/oauth/access_token", data, &raw); err != nil {
			return TokenResponse{}, fmt.Errorf("polling token: %w", err)
		}

		switch raw.Error {
		case "":
			if raw.AccessToken != "" {
				return TokenResponse{AccessToken: raw.AccessToken, TokenType: raw.TokenType, Scope: raw.Scope}, nil
			}
		case "authorization_pending":
		case "slow_down":
			interval += 5
		case "expired_token":
			return TokenResponse{}, fmt.Errorf("device code expired: run opsdeck auth github again")
		case "access_denied":
			return TokenResponse{}, fmt.Errorf("access denied by user")
		default:
			errMsg := raw.Error
			if len(errMsg) > 100 {
				errMsg = errMsg[:100]
			}
			return TokenResponse{}, fmt.Errorf("unexpected error from GitHub: %s", errMsg)
		}
	}
}

func wait(ctx context.Context, seconds int) error {
	if seconds == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *GitHubDeviceFlow) postForm(ctx context.Context, path string, data url.Values, target any) error {
	endpoint, err := url.JoinPath(f.baseURL, path)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.TransportError("github", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return domain.HTTPError("github", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
