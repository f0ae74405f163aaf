package types

import "time"

// Image represents a bootable machine image
type Image struct {
	Name      string    `json:"name"`       // Image name (or AMI ID on AWS)
	Family    string    `json:"family"`     // Image family, if any
	Project   string    `json:"project"`    // Project/owner the image lives in
	Status    string    `json:"status"`     // READY, PENDING, ...
	SizeGB    int64     `json:"size_gb"`    // Disk size in GB
	CreatedAt time.Time `json:"created_at"` // Creation time
	Provider  string    `json:"provider"`   // gcp, aws

	// SelfLink is the fully qualified resource reference used when booting
	// instances from this image. Falls back to Name when the provider has
	// no link concept.
	SelfLink string `json:"self_link,omitempty"`
}

// Ref returns the reference to use as an instance boot image.
func (i *Image) Ref() string {
	if i.SelfLink != "" {
		return i.SelfLink
	}
	return i.Name
}
