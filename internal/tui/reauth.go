package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/opsdeck/internal/auth"
	"github.com/waabox/opsdeck/internal/provider"
)

// ReAuth wires a device-flow login into the browser. When a provider call
// fails with *provider.AuthExpiredError the browser requests a code, shows it
// and polls until the user authorizes.
type ReAuth struct {
	RequestCode func(ctx context.Context) (auth.DeviceCodeResponse, error)
	PollToken   func(ctx context.Context, deviceCode string, interval int) (auth.TokenResponse, error)
	// Completed receives the new token before the pipelines are reloaded.
	Completed func(token auth.TokenResponse)
}

// WithReAuth enables in-browser re-authentication.
func WithReAuth(r ReAuth) Option {
	return func(m *AppModel) { m.onAuth = &r }
}

// DeviceCodeMsg carries the device code to show the user.
type DeviceCodeMsg struct {
	Code auth.DeviceCodeResponse
	Err  error
}

// ReAuthCompleteMsg carries the outcome of polling for the token.
type ReAuthCompleteMsg struct {
	Token auth.TokenResponse
	Err   error
}

type reAuthState struct {
	provider string
	code     auth.DeviceCodeResponse
}

const (
	codeRequestTimeout = 30 * time.Second
	defaultCodeExpiry  = 15 * time.Minute
)

func providerOf(err error) string {
	var expired *provider.AuthExpiredError
	if errors.As(err, &expired) {
		return expired.Provider
	}
	return ""
}

// startReAuth returns the command requesting a device code when err means
// the credentials expired and a login flow is configured.
func (m AppModel) startReAuth(err error) (tea.Cmd, bool) {
	var expired *provider.AuthExpiredError
	if !errors.As(err, &expired) || m.onAuth == nil || m.onAuth.RequestCode == nil {
		return nil, false
	}
	request := m.onAuth.RequestCode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), codeRequestTimeout)
		defer cancel()
		code, err := request(ctx)
		return DeviceCodeMsg{Code: code, Err: err}
	}, true
}

func (m AppModel) pollToken() tea.Cmd {
	poll := m.onAuth.PollToken
	code := m.reAuth.code
	return func() tea.Msg {
		expiry := defaultCodeExpiry
		if code.ExpiresIn > 0 {
			expiry = time.Duration(code.ExpiresIn) * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), expiry)
		defer cancel()
		token, err := poll(ctx, code.DeviceCode, code.Interval)
		return ReAuthCompleteMsg{Token: token, Err: err}
	}
}

func (m AppModel) updateReAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DeviceCodeMsg:
		if m.view != viewReAuth {
			return m, nil
		}
		if msg.Err != nil {
			return m.abortReAuth(fmt.Errorf("re-authentication failed: %w", msg.Err))
		}
		m.reAuth.code = msg.Code
		if m.onAuth == nil || m.onAuth.PollToken == nil {
			return m, nil
		}
		return m, m.pollToken()

	case ReAuthCompleteMsg:
		if msg.Err != nil {
			if m.view != viewReAuth {
				return m, nil
			}
			return m.abortReAuth(fmt.Errorf("re-authentication failed: %w", msg.Err))
		}
		if m.onAuth != nil && m.onAuth.Completed != nil {
			m.onAuth.Completed(msg.Token)
		}
		m.reAuth = reAuthState{}
		m.view = viewPipelines
		m.err = nil
		m.loading = true
		return m, m.loadPipelines()
	}
	return m, nil
}

func (m AppModel) abortReAuth(err error) (tea.Model, tea.Cmd) {
	m.reAuth = reAuthState{}
	m.view = viewPipelines
	m.err = err
	return m, nil
}
