package gitrepo

import (
	"fmt"
	"strings"

	"github.com/waabox/opsdeck/internal/domain"
)

// ParseRemoteURL parses a git remote URL and returns a Repository.
// Supports HTTPS (https://github.com/owner/repo.git), scp-like SSH
// (git@github.com:owner/repo.git) and ssh:// URLs. Nested groups keep the
// last path element as Name. RemoteURL preserves the input unchanged.
func ParseRemoteURL(rawURL string) (domain.Repository, error) {
	normalized := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	var path string
	switch {
	case strings.HasPrefix(normalized, "https://"), strings.HasPrefix(normalized, "http://"),
		strings.HasPrefix(normalized, "ssh://"):
		withoutScheme := normalized[strings.Index(normalized, "://")+3:]
		slash := strings.IndexByte(withoutScheme, '/')
		if slash < 0 {
			return domain.Repository{}, fmt.Errorf("invalid remote URL: %s", rawURL)
		}
		path = withoutScheme[slash+1:]
	case strings.Contains(normalized, "@") && strings.Contains(normalized, ":"):
		path = normalized[strings.IndexByte(normalized, ':')+1:]
	default:
		return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}

	cut := strings.LastIndexByte(path, '/')
	if cut <= 0 || cut == len(path)-1 {
		return domain.Repository{}, fmt.Errorf("invalid remote URL path: %s", rawURL)
	}
	return domain.Repository{
		Owner:     path[:cut],
		Name:      path[cut+1:],
		RemoteURL: rawURL,
	}, nil
}
