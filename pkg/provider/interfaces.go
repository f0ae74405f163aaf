package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tranqh91/nimbus/pkg/types"
)

// DeploymentLabel is the label/tag key that records which deployment owns
// an instance. Convergence and teardown both select on it.
const DeploymentLabel = "nimbus-deployment"

// Common errors
var (
	ErrNotSupported     = errors.New("feature not supported by this provider")
	ErrNotFound         = errors.New("resource not found")
	ErrNotConfigured    = errors.New("provider not configured")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// FleetFilter contains filters for instance listing
type FleetFilter struct {
	Deployment string            // Only instances owned by this deployment
	State      string            // running, stopped, etc.
	Name       string            // Name pattern
	Labels     map[string]string // Label filters
}

// ImageSelection describes how to pick a boot image: an explicit name, or
// the latest image of a family. Exactly which one applies is validated
// upstream; UseLatest wins when both are set.
type ImageSelection struct {
	Name      string // Explicit image name (AMI ID on AWS)
	Family    string // Image family (SSM parameter path on AWS)
	Project   string // Project the image lives in; defaults to the client's
	UseLatest bool   // Resolve the newest image of Family
}

// Method returns a human-readable description of the selection mechanism.
func (s *ImageSelection) Method() string {
	if s.UseLatest {
		return fmt.Sprintf("latest from family %q", s.Family)
	}
	return fmt.Sprintf("explicit name %q", s.Name)
}

// InstanceSpec describes a single instance to create
type InstanceSpec struct {
	Name          string
	Zone          string
	MachineType   string
	Image         string // Resolved boot image reference
	StartupScript string
	NetworkTags   []string
	Labels        map[string]string
	PublicIP      bool
}

// FirewallRule describes one inbound allow rule
type FirewallRule struct {
	Name         string
	Description  string
	Protocol     string // tcp, udp, icmp
	Ports        []string
	SourceRanges []string
	TargetTags   []string
}

// Provisioner is the interface every cloud backend implements. It covers
// the three resource kinds the tool manages: instances, firewall rules,
// and machine images.
type Provisioner interface {
	// ListInstances returns instances matching the filter
	ListInstances(ctx context.Context, filter *FleetFilter) ([]types.Instance, error)

	// CreateInstance creates a single instance and waits until the
	// creation operation completes
	CreateInstance(ctx context.Context, spec *InstanceSpec) (*types.Instance, error)

	// DeleteInstance deletes an instance by name
	DeleteInstance(ctx context.Context, name string) error

	// StartInstance starts a stopped instance
	StartInstance(ctx context.Context, name string) error

	// StopInstance stops a running instance
	StopInstance(ctx context.Context, name string) error

	// WaitStopped blocks until the named instance reaches the stopped
	// state, or the timeout elapses
	WaitStopped(ctx context.Context, name string, timeout time.Duration) error

	// EnsureFirewall creates or updates the given rules
	EnsureFirewall(ctx context.Context, rules []FirewallRule) error

	// DeleteFirewall removes whatever EnsureFirewall created for the same
	// rules; already-missing rules are not an error
	DeleteFirewall(ctx context.Context, rules []FirewallRule) error

	// ResolveImage resolves an image selection to a concrete image
	ResolveImage(ctx context.Context, sel *ImageSelection) (*types.Image, error)

	// CreateImage snapshots the named (stopped) instance's boot disk into
	// a new image
	CreateImage(ctx context.Context, instanceName, imageName, family string) (*types.Image, error)
}

// ImageDeleter is implemented by backends that can remove images. Deleting
// an already-missing image is not an error.
type ImageDeleter interface {
	DeleteImage(ctx context.Context, name string) error
}
