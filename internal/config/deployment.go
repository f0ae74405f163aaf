package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validation errors returned before any cloud call is made. The source of
// truth for a run is the deployment file; a file that fails these checks
// never reaches a provider.
var (
	ErrCountTooSmall    = errors.New("count must be at least 1")
	ErrNoImageSelection = errors.New("no image selected: set image.name, or set image.use_latest with image.family")
)

// ImageConfig describes how the deployment picks its boot image
type ImageConfig struct {
	Name      string `yaml:"name,omitempty"`       // Explicit image name (AMI ID on AWS)
	Family    string `yaml:"family,omitempty"`     // Image family (SSM parameter path on AWS)
	UseLatest bool   `yaml:"use_latest,omitempty"` // Resolve the newest image of the family
}

// BakeConfig describes how golden images for this deployment are built
type BakeConfig struct {
	BaseFamily  string `yaml:"base_family,omitempty"`  // OS family to build on (e.g. debian-12)
	BaseProject string `yaml:"base_project,omitempty"` // Project hosting the base family (e.g. debian-cloud)
	MachineType string `yaml:"machine_type,omitempty"` // Build instance type; defaults to the fleet's
}

// Deployment is the declarative description of one web-server fleet
type Deployment struct {
	Name            string            `yaml:"name"`
	Count           int               `yaml:"count"`
	MachineType     string            `yaml:"machine_type"`
	Zone            string            `yaml:"zone"`
	Image           ImageConfig       `yaml:"image"`
	Bake            BakeConfig        `yaml:"bake,omitempty"`
	WebPort         int               `yaml:"web_port,omitempty"`
	NetworkTags     []string          `yaml:"network_tags,omitempty"`
	SSHSourceRanges []string          `yaml:"ssh_source_ranges,omitempty"`
	Labels          map[string]string `yaml:"labels,omitempty"`
}

// LoadDeployment reads and validates a deployment file. Defaults are
// applied before validation so a minimal file still round-trips.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}

	var dep Deployment
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return nil, fmt.Errorf("failed to parse deployment file: %w", err)
	}

	dep.ApplyDefaults()

	if err := dep.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment %q: %w", path, err)
	}

	return &dep, nil
}

// ApplyDefaults fills optional fields with their documented defaults
func (d *Deployment) ApplyDefaults() {
	if d.WebPort == 0 {
		d.WebPort = 80
	}
	if len(d.NetworkTags) == 0 && d.Name != "" {
		d.NetworkTags = []string{d.Name}
	}
	if len(d.SSHSourceRanges) == 0 {
		d.SSHSourceRanges = []string{"0.0.0.0/0"}
	}
	if d.Bake.MachineType == "" {
		d.Bake.MachineType = d.MachineType
	}
}

// Validate enforces the deployment preconditions. These run before the
// first API call so a bad file never touches cloud state.
func (d *Deployment) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if d.Count < 1 {
		return fmt.Errorf("%w (got %d)", ErrCountTooSmall, d.Count)
	}
	if d.MachineType == "" {
		return errors.New("machine_type is required")
	}
	if d.Zone == "" {
		return errors.New("zone is required")
	}
	if d.Image.Name == "" && !d.Image.UseLatest {
		return ErrNoImageSelection
	}
	if d.Image.UseLatest && d.Image.Family == "" {
		return errors.New("image.use_latest requires image.family")
	}
	if d.WebPort < 1 || d.WebPort > 65535 {
		return fmt.Errorf("web_port out of range: %d", d.WebPort)
	}
	return nil
}

// InstanceName returns the deterministic name of the i-th fleet member
func (d *Deployment) InstanceName(i int) string {
	return fmt.Sprintf("%s-%d", d.Name, i)
}

// InstanceNames returns the full desired name set, in order
func (d *Deployment) InstanceNames() []string {
	names := make([]string, d.Count)
	for i := 0; i < d.Count; i++ {
		names[i] = d.InstanceName(i)
	}
	return names
}
