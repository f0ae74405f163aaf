// Package provision converges a deployment's declared fleet against the
// instances a cloud backend reports. Convergence is name-set convergence
// scoped to one deployment: missing members are created, surplus members
// deleted, matching members left alone. There is no general dependency
// graph or cross-deployment planning.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/retry"
	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// Engine drives apply and destroy runs against a single backend
type Engine struct {
	backend provider.Provisioner
	logf    func(format string, args ...interface{})
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithLogf sets the progress log function. Defaults to log.Printf.
func WithLogf(logf func(format string, args ...interface{})) EngineOption {
	return func(e *Engine) {
		e.logf = logf
	}
}

// NewEngine creates an Engine for the given backend
func NewEngine(backend provider.Provisioner, opts ...EngineOption) *Engine {
	e := &Engine{
		backend: backend,
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// imageSelection maps the deployment's image config to a provider selection
func imageSelection(dep *config.Deployment) *provider.ImageSelection {
	return &provider.ImageSelection{
		Name:      dep.Image.Name,
		Family:    dep.Image.Family,
		UseLatest: dep.Image.UseLatest,
	}
}

// retriable wraps a backend call so transient API failures are retried but
// errors that cannot resolve themselves short-circuit immediately.
func retriable(op func() error) func() error {
	return func() error {
		err := op()
		if errors.Is(err, provider.ErrNotFound) ||
			errors.Is(err, provider.ErrPermissionDenied) ||
			errors.Is(err, provider.ErrNotConfigured) {
			return retry.Permanent(err)
		}
		return err
	}
}

// instanceLabels returns the labels applied to every fleet member
func instanceLabels(dep *config.Deployment) map[string]string {
	labels := map[string]string{
		provider.DeploymentLabel: dep.Name,
	}
	for k, v := range dep.Labels {
		labels[k] = v
	}
	return labels
}

// Apply converges the fleet to the deployment's declared state and returns
// the run outputs. The image is resolved first: a selection that does not
// resolve fails the run before any resource is touched.
func (e *Engine) Apply(ctx context.Context, dep *config.Deployment) (*types.Outputs, error) {
	sel := imageSelection(dep)

	img, err := e.backend.ResolveImage(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("resolve image: %w", err)
	}
	e.logf("Using image %s (%s)", img.Name, sel.Method())

	if err := e.backend.EnsureFirewall(ctx, FirewallRules(dep)); err != nil {
		return nil, fmt.Errorf("ensure firewall: %w", err)
	}

	current, err := e.backend.ListInstances(ctx, &provider.FleetFilter{
		Deployment: dep.Name,
		State:      "all",
	})
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}

	toCreate, toDelete := Plan(current, dep.InstanceNames())

	outputs := &types.Outputs{
		Deployment:     dep.Name,
		Image:          img.Name,
		ImageSelection: sel.Method(),
		Unchanged:      len(current) - len(toDelete),
	}

	ips := make(map[string]string)
	for _, inst := range current {
		ips[inst.Name] = inst.PublicIP
	}

	for _, name := range toCreate {
		e.logf("Creating instance %s...", name)
		var inst *types.Instance
		err := retry.Do(ctx, retriable(func() error {
			var createErr error
			inst, createErr = e.backend.CreateInstance(ctx, &provider.InstanceSpec{
				Name:          name,
				Zone:          dep.Zone,
				MachineType:   dep.MachineType,
				Image:         img.Ref(),
				StartupScript: WebStartupScript(dep.WebPort),
				NetworkTags:   dep.NetworkTags,
				Labels:        instanceLabels(dep),
				PublicIP:      true,
			})
			return createErr
		}), retry.Attempts(3))
		if err != nil {
			return nil, fmt.Errorf("create instance %s: %w", name, err)
		}
		ips[inst.Name] = inst.PublicIP
		outputs.Created++
	}

	for _, inst := range toDelete {
		e.logf("Deleting surplus instance %s...", inst.Name)
		name := inst.Name
		err := retry.Do(ctx, retriable(func() error {
			return e.backend.DeleteInstance(ctx, name)
		}), retry.Attempts(3))
		if err != nil {
			return nil, fmt.Errorf("delete instance %s: %w", name, err)
		}
		delete(ips, name)
		outputs.Deleted++
	}

	for _, name := range dep.InstanceNames() {
		if ip := ips[name]; ip != "" {
			outputs.ExternalIPs = append(outputs.ExternalIPs, ip)
		}
	}

	return outputs, nil
}

// Destroy deletes every instance owned by the deployment, then its
// firewall rules, so nothing the matching Apply created is left behind.
func (e *Engine) Destroy(ctx context.Context, dep *config.Deployment) error {
	current, err := e.backend.ListInstances(ctx, &provider.FleetFilter{
		Deployment: dep.Name,
		State:      "all",
	})
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	sort.Slice(current, func(i, j int) bool { return current[i].Name < current[j].Name })

	for _, inst := range current {
		e.logf("Deleting instance %s...", inst.Name)
		name := inst.Name
		err := retry.Do(ctx, retriable(func() error {
			return e.backend.DeleteInstance(ctx, name)
		}), retry.Attempts(3))
		if err != nil {
			return fmt.Errorf("delete instance %s: %w", name, err)
		}
	}

	if err := e.backend.DeleteFirewall(ctx, FirewallRules(dep)); err != nil {
		return fmt.Errorf("delete firewall: %w", err)
	}

	return nil
}
