package types

import "time"

// InstanceState represents the lifecycle state of an instance
type InstanceState string

const (
	InstanceStateRunning  InstanceState = "running"
	InstanceStateStopped  InstanceState = "stopped"
	InstanceStatePending  InstanceState = "pending"
	InstanceStateStopping InstanceState = "stopping"
	InstanceStateUnknown  InstanceState = "unknown"
)

// Instance represents a unified compute instance model
type Instance struct {
	ID         string            `json:"id"`          // Provider-specific ID
	Name       string            `json:"name"`        // Instance name or Name tag
	State      InstanceState     `json:"state"`       // running, stopped, pending
	PrivateIP  string            `json:"private_ip"`  // Private IP address
	PublicIP   string            `json:"public_ip"`   // External IP address (if any)
	Type       string            `json:"type"`        // Machine type (e2-small, t3.micro)
	Zone       string            `json:"zone"`        // Zone or availability zone
	Deployment string            `json:"deployment"`  // Owning deployment, from labels/tags
	Labels     map[string]string `json:"labels"`      // All labels/tags
	LaunchedAt time.Time         `json:"launched_at"` // Launch time
	Provider   string            `json:"provider"`    // gcp, aws

	// Raw holds the original API response for provider-specific access
	Raw interface{} `json:"-"`
}

// IsRunning returns true if the instance is running
func (i *Instance) IsRunning() bool {
	return i.State == InstanceStateRunning
}

// IsStopped returns true if the instance is stopped
func (i *Instance) IsStopped() bool {
	return i.State == InstanceStateStopped
}

// GetLabel returns a label value by key
func (i *Instance) GetLabel(key string) string {
	if i.Labels == nil {
		return ""
	}
	return i.Labels[key]
}
