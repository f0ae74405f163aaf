// Package imagebuild creates golden web-server images by booting a
// temporary instance, letting its startup script provision and power off
// the machine, and snapshotting the boot disk into a named image.
package imagebuild

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tranqh91/nimbus/internal/retry"
	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// bakeScript is the fixed provisioning sequence applied to the build
// instance. The service is enabled but stopped, so the image boots with
// the web server installed and inactive until instance startup logic
// brings it up. The final poweroff signals a successful run; a failed
// step leaves the instance running and the build times out.
const bakeScript = `#!/bin/bash
set -euo pipefail
export DEBIAN_FRONTEND=noninteractive
apt-get update
apt-get upgrade -y
apt-get install -y nginx
systemctl enable nginx
systemctl stop nginx
poweroff
`

// defaultTimeout bounds how long a build waits for the self-poweroff
const defaultTimeout = 20 * time.Minute

// Backend is the subset of a cloud provisioner a build needs
type Backend interface {
	ResolveImage(ctx context.Context, sel *provider.ImageSelection) (*types.Image, error)
	CreateInstance(ctx context.Context, spec *provider.InstanceSpec) (*types.Instance, error)
	DeleteInstance(ctx context.Context, name string) error
	WaitStopped(ctx context.Context, name string, timeout time.Duration) error
	CreateImage(ctx context.Context, instanceName, imageName, family string) (*types.Image, error)
}

// BuildSpec describes one image build
type BuildSpec struct {
	ImageName   string // Name of the image to produce (required)
	Family      string // Family the produced image joins, if any
	BaseFamily  string // OS family to build on, e.g. debian-12
	BaseProject string // Project hosting the base family, e.g. debian-cloud
	MachineType string // Build instance type
	Zone        string // Build instance zone
	Timeout     time.Duration
}

// Builder builds golden images against a cloud backend
type Builder struct {
	backend Backend
	logf    func(format string, args ...interface{})
}

// Option customizes a Builder
type Option func(*Builder)

// WithLogf sets the progress log function. Defaults to log.Printf.
func WithLogf(logf func(format string, args ...interface{})) Option {
	return func(b *Builder) {
		b.logf = logf
	}
}

// NewBuilder creates a new Builder
func NewBuilder(backend Backend, opts ...Option) *Builder {
	b := &Builder{
		backend: backend,
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs one image build and returns the produced image. The
// temporary instance is always deleted, success or failure, and the image
// is only created after provisioning finished, so no partial artifact
// survives an aborted build.
func (b *Builder) Build(ctx context.Context, spec *BuildSpec) (*types.Image, error) {
	if spec.ImageName == "" {
		return nil, fmt.Errorf("image name is required")
	}
	if spec.BaseFamily == "" {
		return nil, fmt.Errorf("base family is required (set bake.base_family)")
	}

	timeout := spec.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	base, err := b.backend.ResolveImage(ctx, &provider.ImageSelection{
		Family:    spec.BaseFamily,
		Project:   spec.BaseProject,
		UseLatest: true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve base image: %w", err)
	}

	buildName := "bake-" + spec.ImageName
	b.logf("Creating build instance %s from %s...", buildName, base.Name)

	_, err = b.backend.CreateInstance(ctx, &provider.InstanceSpec{
		Name:          buildName,
		Zone:          spec.Zone,
		MachineType:   spec.MachineType,
		Image:         base.Ref(),
		StartupScript: bakeScript,
		Labels:        map[string]string{"nimbus-bake": "true"},
		PublicIP:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create build instance: %w", err)
	}

	defer func() {
		b.logf("Deleting build instance %s...", buildName)
		if err := b.backend.DeleteInstance(context.Background(), buildName); err != nil {
			b.logf("Failed to delete build instance %s: %v", buildName, err)
		}
	}()

	b.logf("Waiting for provisioning to finish (up to %s)...", timeout)
	if err := b.backend.WaitStopped(ctx, buildName, timeout); err != nil {
		return nil, fmt.Errorf("provisioning did not complete: %w", err)
	}

	b.logf("Creating image %s...", spec.ImageName)
	var img *types.Image
	err = retry.Do(ctx, func() error {
		var createErr error
		img, createErr = b.backend.CreateImage(ctx, buildName, spec.ImageName, spec.Family)
		return createErr
	}, retry.Attempts(3), retry.InitialDelay(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	return img, nil
}
