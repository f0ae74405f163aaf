package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Context represents a cloud context configuration
type Context struct {
	Provider string `yaml:"provider"`          // "gcp" or "aws"
	Project  string `yaml:"project,omitempty"` // GCP project ID
	Profile  string `yaml:"profile,omitempty"` // AWS profile name
	Region   string `yaml:"region,omitempty"`  // Region
	Zone     string `yaml:"zone,omitempty"`    // Default zone for instances
}

// Defaults represents default settings
type Defaults struct {
	Output     string `yaml:"output,omitempty"`     // table, json
	Deployment string `yaml:"deployment,omitempty"` // Default deployment file
}

// NimbusConfig represents the main configuration file (~/.nimbus.yaml)
type NimbusConfig struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`
	Defaults       *Defaults           `yaml:"defaults,omitempty"`
}

// ConfigPath returns the config file path (~/.nimbus.yaml)
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nimbus.yaml"
	}
	return filepath.Join(home, ".nimbus.yaml")
}

// Load loads the configuration from ~/.nimbus.yaml
func Load() (*NimbusConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return &NimbusConfig{
				Contexts: make(map[string]*Context),
				Defaults: &Defaults{Output: "table"},
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg NimbusConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = &Defaults{Output: "table"}
	}

	return &cfg, nil
}

// Save saves the configuration to ~/.nimbus.yaml
func Save(cfg *NimbusConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetCurrentContext returns the current active context
func GetCurrentContext() (*Context, string, error) {
	cfg, err := Load()
	if err != nil {
		return nil, "", err
	}

	if cfg.CurrentContext == "" {
		return nil, "", nil
	}

	ctx, ok := cfg.Contexts[cfg.CurrentContext]
	if !ok {
		return nil, "", fmt.Errorf("context %q not found", cfg.CurrentContext)
	}

	return ctx, cfg.CurrentContext, nil
}

// SetCurrentContext sets the current active context
func SetCurrentContext(name string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}

	cfg.CurrentContext = name
	return Save(cfg)
}

// AddContext adds or updates a context
func AddContext(name string, ctx *Context) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.Contexts[name] = ctx
	return Save(cfg)
}

// DeleteContext removes a context
func DeleteContext(name string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	delete(cfg.Contexts, name)

	// Clear current context if it was the deleted one
	if cfg.CurrentContext == name {
		cfg.CurrentContext = ""
	}

	return Save(cfg)
}

// ListContexts returns all configured contexts
func ListContexts() (map[string]*Context, string, error) {
	cfg, err := Load()
	if err != nil {
		return nil, "", err
	}

	return cfg.Contexts, cfg.CurrentContext, nil
}

// ParseContextName parses a context name like "gcp:prod" into provider and name
func ParseContextName(name string) (provider, contextName string) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", name
}
