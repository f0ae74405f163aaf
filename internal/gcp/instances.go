package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// Provisioner implements provider.Provisioner for Google Compute Engine.
type Provisioner struct {
	client *Client
}

// NewProvisioner creates a GCE provisioner backed by the given Client.
func NewProvisioner(client *Client) *Provisioner {
	return &Provisioner{client: client}
}

// newInstancesClient returns an authenticated GCE Instances REST client.
func (p *Provisioner) newInstancesClient(ctx context.Context) (*compute.InstancesClient, error) {
	return compute.NewInstancesRESTClient(ctx,
		option.WithTokenSource(p.client.Credentials().TokenSource),
	)
}

// buildFilter converts a FleetFilter into a GCE filter string.
func buildFilter(filter *provider.FleetFilter) string {
	var parts []string

	if filter != nil {
		switch filter.State {
		case "running":
			parts = append(parts, "status=RUNNING")
		case "stopped":
			parts = append(parts, "status=TERMINATED")
		case "", "all":
			// no state filter
		default:
			parts = append(parts, fmt.Sprintf("status=%s", strings.ToUpper(filter.State)))
		}

		if filter.Name != "" {
			// GCE name filter uses RE2: prefix match
			parts = append(parts, fmt.Sprintf("name:%s", filter.Name))
		}

		if filter.Deployment != "" {
			parts = append(parts, fmt.Sprintf("labels.%s=%s", provider.DeploymentLabel, filter.Deployment))
		}

		for k, v := range filter.Labels {
			parts = append(parts, fmt.Sprintf("labels.%s=%s", k, v))
		}
	}

	return strings.Join(parts, " AND ")
}

// gceToInstance converts a GCE Instance proto to the unified Instance type.
func gceToInstance(inst *computepb.Instance) types.Instance {
	out := types.Instance{
		ID:       fmt.Sprintf("%d", inst.GetId()),
		Name:     inst.GetName(),
		State:    gceStatusToState(inst.GetStatus()),
		Type:     path.Base(inst.GetMachineType()),
		Zone:     path.Base(inst.GetZone()),
		Provider: "gcp",
		Labels:   inst.GetLabels(),
		Raw:      inst,
	}

	if out.Labels == nil {
		out.Labels = make(map[string]string)
	}
	out.Deployment = out.Labels[provider.DeploymentLabel]

	// Network interfaces
	if nics := inst.GetNetworkInterfaces(); len(nics) > 0 {
		out.PrivateIP = nics[0].GetNetworkIP()
		if acs := nics[0].GetAccessConfigs(); len(acs) > 0 {
			out.PublicIP = acs[0].GetNatIP()
		}
	}

	// Launch time
	if ts := inst.GetCreationTimestamp(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.LaunchedAt = t
		}
	}

	return out
}

// gceStatusToState maps a GCE instance status string to InstanceState.
func gceStatusToState(status string) types.InstanceState {
	switch status {
	case "RUNNING":
		return types.InstanceStateRunning
	case "TERMINATED", "SUSPENDED":
		return types.InstanceStateStopped
	case "PROVISIONING", "STAGING":
		return types.InstanceStatePending
	case "STOPPING", "SUSPENDING":
		return types.InstanceStateStopping
	default:
		return types.InstanceStateUnknown
	}
}

// listZone returns the zone to list in, or "" when the listing must use an
// AggregatedList across zones. Deployment-scoped listings always span
// zones: convergence and teardown select on the label, and the fleet's
// declared zone can differ from the context's default.
func listZone(filter *provider.FleetFilter, defaultZone string) string {
	if filter != nil && filter.Deployment != "" {
		return ""
	}
	return defaultZone
}

// ListInstances returns GCE instances matching the filter. Plain listings
// are scoped to the client's default zone when one is set; deployment
// listings use an AggregatedList filtered by region prefix.
func (p *Provisioner) ListInstances(ctx context.Context, filter *provider.FleetFilter) ([]types.Instance, error) {
	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	gceFilter := buildFilter(filter)

	if zone := listZone(filter, p.client.Zone()); zone != "" {
		return p.listByZone(ctx, ic, zone, gceFilter)
	}
	return p.listAggregated(ctx, ic, p.client.Region(), gceFilter)
}

func (p *Provisioner) listByZone(ctx context.Context, ic *compute.InstancesClient, zone, gceFilter string) ([]types.Instance, error) {
	req := &computepb.ListInstancesRequest{
		Project: p.client.Project(),
		Zone:    zone,
	}
	if gceFilter != "" {
		req.Filter = &gceFilter
	}

	var out []types.Instance
	it := ic.List(ctx, req)
	for {
		inst, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		out = append(out, gceToInstance(inst))
	}
	return out, nil
}

func (p *Provisioner) listAggregated(ctx context.Context, ic *compute.InstancesClient, region, gceFilter string) ([]types.Instance, error) {
	req := &computepb.AggregatedListInstancesRequest{
		Project: p.client.Project(),
	}
	if gceFilter != "" {
		req.Filter = &gceFilter
	}

	var out []types.Instance
	it := ic.AggregatedList(ctx, req)
	for {
		pair, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("aggregated list instances: %w", err)
		}

		// Filter to zones belonging to the requested region (or all if region is empty)
		zoneName := strings.TrimPrefix(pair.Key, "zones/")
		if region != "" && !strings.HasPrefix(zoneName, region+"-") {
			continue
		}

		for _, inst := range pair.Value.GetInstances() {
			out = append(out, gceToInstance(inst))
		}
	}
	return out, nil
}

// resolveInstance looks up an instance by name or numeric ID across zones
// and returns it with the zone populated. GCE's mutating APIs all require
// the zone, and the instance may not live in the context's default zone.
func (p *Provisioner) resolveInstance(ctx context.Context, nameOrID string) (*types.Instance, error) {
	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	all, err := p.listAggregated(ctx, ic, p.client.Region(), "")
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].Name == nameOrID || all[i].ID == nameOrID {
			if all[i].Zone == "" {
				return nil, fmt.Errorf("could not determine zone for instance %s", nameOrID)
			}
			return &all[i], nil
		}
	}

	return nil, fmt.Errorf("instance %s: %w", nameOrID, provider.ErrNotFound)
}

// CreateInstance creates a GCE instance per the spec and waits for the
// insert operation to complete.
func (p *Provisioner) CreateInstance(ctx context.Context, spec *provider.InstanceSpec) (*types.Instance, error) {
	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	zone := spec.Zone
	if zone == "" {
		zone = p.client.Zone()
	}
	if zone == "" {
		return nil, fmt.Errorf("no zone configured for instance %s", spec.Name)
	}

	inst := &computepb.Instance{
		Name: proto.String(spec.Name),
		MachineType: proto.String(fmt.Sprintf(
			"zones/%s/machineTypes/%s", zone, spec.MachineType,
		)),
		Disks: []*computepb.AttachedDisk{
			{
				Boot:       proto.Bool(true),
				AutoDelete: proto.Bool(true),
				InitializeParams: &computepb.AttachedDiskInitializeParams{
					SourceImage: proto.String(spec.Image),
				},
			},
		},
		NetworkInterfaces: []*computepb.NetworkInterface{
			{
				Network: proto.String("global/networks/default"),
			},
		},
		Labels: spec.Labels,
	}

	if spec.PublicIP {
		inst.NetworkInterfaces[0].AccessConfigs = []*computepb.AccessConfig{
			{
				Type: proto.String("ONE_TO_ONE_NAT"),
				Name: proto.String("External NAT"),
			},
		}
	}

	if len(spec.NetworkTags) > 0 {
		inst.Tags = &computepb.Tags{Items: spec.NetworkTags}
	}

	if spec.StartupScript != "" {
		inst.Metadata = &computepb.Metadata{
			Items: []*computepb.Items{
				{
					Key:   proto.String("startup-script"),
					Value: proto.String(spec.StartupScript),
				},
			},
		}
	}

	op, err := ic.Insert(ctx, &computepb.InsertInstanceRequest{
		Project:          p.client.Project(),
		Zone:             zone,
		InstanceResource: inst,
	})
	if err != nil {
		return nil, fmt.Errorf("insert instance %s: %w", spec.Name, err)
	}
	if err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for instance %s: %w", spec.Name, err)
	}

	created, err := ic.Get(ctx, &computepb.GetInstanceRequest{
		Project:  p.client.Project(),
		Zone:     zone,
		Instance: spec.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", spec.Name, err)
	}

	out := gceToInstance(created)
	return &out, nil
}

// DeleteInstance deletes a GCE instance and waits for the operation.
func (p *Provisioner) DeleteInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	op, err := ic.Delete(ctx, &computepb.DeleteInstanceRequest{
		Project:  p.client.Project(),
		Zone:     inst.Zone,
		Instance: inst.Name,
	})
	if err != nil {
		return fmt.Errorf("delete instance %s: %w", name, err)
	}
	return op.Wait(ctx)
}

// StartInstance starts a GCE instance and waits for the operation to complete.
func (p *Provisioner) StartInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	op, err := ic.Start(ctx, &computepb.StartInstanceRequest{
		Project:  p.client.Project(),
		Zone:     inst.Zone,
		Instance: inst.Name,
	})
	if err != nil {
		return fmt.Errorf("start instance %s: %w", name, err)
	}
	return op.Wait(ctx)
}

// StopInstance stops a GCE instance and waits for the operation to complete.
func (p *Provisioner) StopInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	op, err := ic.Stop(ctx, &computepb.StopInstanceRequest{
		Project:  p.client.Project(),
		Zone:     inst.Zone,
		Instance: inst.Name,
	})
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", name, err)
	}
	return op.Wait(ctx)
}

// WaitStopped polls until the named instance reaches TERMINATED. Bake
// scripts end with a poweroff, so this is how image builds detect that
// provisioning finished.
func (p *Provisioner) WaitStopped(ctx context.Context, name string, timeout time.Duration) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	ic, err := p.newInstancesClient(ctx)
	if err != nil {
		return fmt.Errorf("create instances client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()

	for {
		current, err := ic.Get(ctx, &computepb.GetInstanceRequest{
			Project:  p.client.Project(),
			Zone:     inst.Zone,
			Instance: inst.Name,
		})
		if err != nil {
			return fmt.Errorf("get instance %s: %w", name, err)
		}
		if current.GetStatus() == "TERMINATED" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("instance %s did not stop within %s (status %s)",
				name, timeout, current.GetStatus())
		case <-tick.C:
		}
	}
}
