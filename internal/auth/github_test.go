package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/waabox/opsdeck/internal/auth"
	"github.com/waabox/opsdeck/internal/domain"
)

// tokenServer answers the token endpoint with replies in order, repeating
// the last one, and counts the polls.
func tokenServer(t *testing.T, replies ...map[string]string) (*auth.GitHubDeviceFlow, *int) {
	t.Helper()
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/oauth/access_token" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		if got := r.Form.Get("device_code"); got != "dev_abc" {
			t.Errorf("unexpected device_code %q", got)
		}
		reply := replies[min(polls, len(replies)-1)]
		polls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(server.Close)
	return auth.NewGitHubDeviceFlow("test_client_id", server.URL), &polls
}

func TestGitHubDeviceFlow_RequestCode_ReturnsUserCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login/device/code" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		r.ParseForm()
		if r.Form.Get("client_id") != "test_client_id" {
			t.Errorf("unexpected client_id %q", r.Form.Get("client_id"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"device_code":      "dev_abc",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer server.Close()

	code, err := auth.NewGitHubDeviceFlow("test_client_id", server.URL).RequestCode(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := auth.DeviceCodeResponse{
		DeviceCode:      "dev_abc",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/login/device",
		ExpiresIn:       900,
		Interval:        5,
	}
	if code != want {
		t.Errorf("got %+v, want %+v", code, want)
	}
}

func TestGitHubDeviceFlow_PollToken_WaitsWhilePending(t *testing.T) {
	flow, polls := tokenServer(t,
		map[string]string{"error": "authorization_pending"},
		map[string]string{"error": "authorization_pending"},
		map[string]string{"access_token": "gho_real_token", "token_type": "bearer", "scope": "repo,workflow"},
	)

	token, err := flow.PollToken(context.Background(), "dev_abc", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := auth.TokenResponse{AccessToken: "gho_real_token", TokenType: "bearer", Scope: "repo,workflow"}
	if token != want {
		t.Errorf("got %+v, want %+v", token, want)
	}
	if *polls != 3 {
		t.Errorf("expected 3 polls, got %d", *polls)
	}
}

func TestGitHubDeviceFlow_PollToken_TerminalErrors(t *testing.T) {
	cases := map[string]string{
		"expired_token":     "device code expired",
		"access_denied":     "access denied by user",
		"some_unknown_code": "unexpected error from GitHub: some_unknown_code",
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			flow, polls := tokenServer(t, map[string]string{"error": code})

			_, err := flow.PollToken(context.Background(), "dev_abc", 0)
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Fatalf("expected error containing %q, got %v", want, err)
			}
			if *polls != 1 {
				t.Errorf("expected a single poll, got %d", *polls)
			}
		})
	}
}

// slow_down adds five seconds, so a cancelled context stops the wait
// before the second poll.
func TestGitHubDeviceFlow_PollToken_SlowDownBacksOff(t *testing.T) {
	flow, polls := tokenServer(t,
		map[string]string{"error": "slow_down"},
		map[string]string{"access_token": "gho_after_slowdown"},
	)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := flow.PollToken(ctx, "dev_abc", 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while backing off, got %v", err)
	}
	if *polls != 1 {
		t.Errorf("expected 1 poll before the back-off, got %d", *polls)
	}
}

func TestGitHubDeviceFlow_PollToken_CancelledContext(t *testing.T) {
	flow, polls := tokenServer(t, map[string]string{"error": "authorization_pending"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := flow.PollToken(ctx, "dev_abc", 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if *polls != 0 {
		t.Errorf("expected no polls, got %d", *polls)
	}
}

func TestGitHubDeviceFlow_RequestCode_PropagatesRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"incorrect_client_credentials"}`))
	}))
	defer server.Close()

	flow := auth.NewGitHubDeviceFlow("bad_client", server.URL)
	_, err := flow.RequestCode(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGitHubDeviceFlow_Login_PromptsThenPolls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("scope") != "repo,workflow" {
			t.Errorf("unexpected scope %q", r.Form.Get("scope"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"device_code":      "dev_xyz",
			"user_code":        "WXYZ-9876",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       60,
			"interval":         0,
		})
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("device_code") != "dev_xyz" {
			t.Errorf("unexpected device code %q", r.Form.Get("device_code"))
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_login"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var shown string
	flow := auth.NewGitHubDeviceFlow("test_client_id", server.URL)
	token, err := flow.Login(context.Background(), func(c auth.DeviceCodeResponse) { shown = c.UserCode })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shown != "WXYZ-9876" {
		t.Errorf("expected prompt to receive user code, got %q", shown)
	}
	if token.AccessToken != "gho_login" {
		t.Errorf("unexpected token %q", token.AccessToken)
	}
}

func TestGitHubDeviceFlow_Login_RequiresClientID(t *testing.T) {
	flow := auth.NewGitHubDeviceFlow("", "http://127.0.0.1:0")
	if _, err := flow.Login(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty client id")
	}
}
