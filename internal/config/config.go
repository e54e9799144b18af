package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GitHubConfig holds credentials and the default repository for GitHub Actions.
type GitHubConfig struct {
	ClientID string `toml:"client_id"`
	Token    string `toml:"token"`
	Owner    string `toml:"owner"`
	Repo     string `toml:"repo"`
	APIURL   string `toml:"api_url"`
}

// JenkinsConfig holds the Jenkins server URL and basic-auth credentials.
type JenkinsConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Token    string `toml:"token"`
	// Job is the job browsed when the repository is not on GitHub.
	Job string `toml:"job"`
	// JobConfigXML is the config.xml used by "jenkins create-job" when no file is given.
	JobConfigXML string `toml:"job_config_xml"`
}

// KubernetesConfig selects the kubeconfig file and context.
type KubernetesConfig struct {
	Kubeconfig string `toml:"kubeconfig"`
	Context    string `toml:"context"`
	Namespace  string `toml:"namespace"`
}

// DockerConfig selects the engine endpoint. Empty values defer to the DOCKER_* environment.
type DockerConfig struct {
	Host       string `toml:"host"`
	APIVersion string `toml:"api_version"`
}

// GitConfig holds the repository path and the remote/branch used when none is passed.
type GitConfig struct {
	Path   string `toml:"path"`
	Remote string `toml:"remote"`
	Branch string `toml:"branch"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig toggles the prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Config holds all opsdeck configuration.
type Config struct {
	GitHub        GitHubConfig     `toml:"github"`
	Jenkins       JenkinsConfig    `toml:"jenkins"`
	Kubernetes    KubernetesConfig `toml:"kubernetes"`
	Docker        DockerConfig     `toml:"docker"`
	Git           GitConfig        `toml:"git"`
	Log           LogConfig        `toml:"log"`
	Metrics       MetricsConfig    `toml:"metrics"`
	PipelineLimit int              `toml:"pipeline_limit"`
}

const (
	defaultPipelineLimit = 3
	defaultRemote        = "origin"
	defaultBranch        = "main"
	defaultNamespace     = "default"
)

// PipelineLimitOrDefault returns PipelineLimit if set, otherwise defaultPipelineLimit.
func (c Config) PipelineLimitOrDefault() int {
	if c.PipelineLimit > 0 {
		return c.PipelineLimit
	}
	return defaultPipelineLimit
}

// RemoteOrDefault returns the configured git remote, or "origin".
func (c GitConfig) RemoteOrDefault() string {
	if c.Remote != "" {
		return c.Remote
	}
	return defaultRemote
}

// BranchOrDefault returns the configured git branch, or "main".
func (c GitConfig) BranchOrDefault() string {
	if c.Branch != "" {
		return c.Branch
	}
	return defaultBranch
}

// NamespaceOrDefault returns the configured namespace, or "default".
func (c KubernetesConfig) NamespaceOrDefault() string {
	if c.Namespace != "" {
		return c.Namespace
	}
	return defaultNamespace
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - GITHUB_TOKEN      overrides github.token
//   - JENKINS_URL       overrides jenkins.url
//   - JENKINS_USER      overrides jenkins.username
//   - JENKINS_TOKEN     overrides jenkins.token
//   - KUBECONFIG        overrides kubernetes.kubeconfig
//   - DOCKER_HOST       overrides docker.host
//   - OPSDECK_LOG_LEVEL overrides log.level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the opsdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "opsdeck", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"GITHUB_TOKEN", &cfg.GitHub.Token},
		{"JENKINS_URL", &cfg.Jenkins.URL},
		{"JENKINS_USER", &cfg.Jenkins.Username},
		{"JENKINS_TOKEN", &cfg.Jenkins.Token},
		{"KUBECONFIG", &cfg.Kubernetes.Kubeconfig},
		{"DOCKER_HOST", &cfg.Docker.Host},
		{"OPSDECK_LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
