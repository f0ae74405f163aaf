package types

// Outputs is the result of converging a deployment, mirroring what the
// provisioning run reports back to the caller.
type Outputs struct {
	Deployment     string   `json:"deployment"`
	ExternalIPs    []string `json:"external_ips"`
	Image          string   `json:"image"`           // Resolved image name
	ImageSelection string   `json:"image_selection"` // How the image was chosen
	Created        int      `json:"created"`
	Deleted        int      `json:"deleted"`
	Unchanged      int      `json:"unchanged"`
}

// NoOp reports whether the run changed nothing.
func (o *Outputs) NoOp() bool {
	return o.Created == 0 && o.Deleted == 0
}
