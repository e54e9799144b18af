package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/waabox/opsdeck/internal/domain"
)

// Registry maps remote URL hosts to PipelineProvider implementations.
type Registry struct {
	entries  []entry
	fallback domain.PipelineProvider
}

type entry struct {
	host     string
	provider domain.PipelineProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates a host (e.g., "github.com") with a provider. The host
// also matches its subdomains.
func (r *Registry) Register(host string, p domain.PipelineProvider) {
	r.entries = append(r.entries, entry{host: strings.ToLower(host), provider: p})
}

// SetFallback sets the provider used when no host matches. Build servers
// such as Jenkins are not tied to the repository host.
func (r *Registry) SetFallback(p domain.PipelineProvider) {
	r.fallback = p
}

// Detect returns the provider matching the host of remoteURL, then the
// fallback. The error wraps domain.ErrNotFound when neither exists.
func (r *Registry) Detect(remoteURL string) (domain.PipelineProvider, error) {
	host := Host(remoteURL)
	for _, e := range r.entries {
		if host == e.host || strings.HasSuffix(host, "."+e.host) {
			return e.provider, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no provider for remote %s: %w", remoteURL, domain.ErrNotFound)
}

// Host extracts the lowercase host of a URL or scp-like remote.
func Host(remote string) string {
	if strings.Contains(remote, "://") {
		u, err := url.Parse(remote)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	// git@github.com:owner/repo.git
	if _, rest, ok := strings.Cut(remote, "@"); ok {
		remote = rest
	}
	host, _, _ := strings.Cut(remote, ":")
	return strings.ToLower(host)
}
