package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// Provisioner implements provider.Provisioner for EC2
type Provisioner struct {
	client *Client
}

// NewProvisioner creates an EC2 provisioner backed by the given Client
func NewProvisioner(client *Client) *Provisioner {
	return &Provisioner{client: client}
}

// ListInstances returns EC2 instances matching the filter
func (p *Provisioner) ListInstances(ctx context.Context, filter *provider.FleetFilter) ([]types.Instance, error) {
	states := []string{"pending", "running", "stopping", "stopped"}
	if filter != nil {
		switch filter.State {
		case "running":
			states = []string{"running"}
		case "stopped":
			states = []string{"stopped"}
		case "", "all":
			// keep every non-terminated state
		default:
			states = []string{filter.State}
		}
	}

	filters := []ec2types.Filter{
		{
			Name:   aws.String("instance-state-name"),
			Values: states,
		},
	}

	if filter != nil && filter.Deployment != "" {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + provider.DeploymentLabel),
			Values: []string{filter.Deployment},
		})
	}

	if filter != nil && filter.Name != "" {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:Name"),
			Values: []string{"*" + filter.Name + "*"},
		})
	}

	output, err := p.client.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: filters,
	})
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	var instances []types.Instance
	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			instances = append(instances, toInstance(inst))
		}
	}

	return instances, nil
}

// toInstance converts an EC2 Instance to the unified Instance type
func toInstance(i ec2types.Instance) types.Instance {
	inst := types.Instance{
		ID:       deref(i.InstanceId),
		State:    ec2StateToState(i.State),
		Type:     string(i.InstanceType),
		Provider: "aws",
		Labels:   make(map[string]string),
		Raw:      i,
	}

	if i.PrivateIpAddress != nil {
		inst.PrivateIP = *i.PrivateIpAddress
	}

	if i.PublicIpAddress != nil {
		inst.PublicIP = *i.PublicIpAddress
	}

	if i.Placement != nil && i.Placement.AvailabilityZone != nil {
		inst.Zone = *i.Placement.AvailabilityZone
	}

	if i.LaunchTime != nil {
		inst.LaunchedAt = *i.LaunchTime
	}

	for _, tag := range i.Tags {
		key := deref(tag.Key)
		value := deref(tag.Value)
		inst.Labels[key] = value

		switch key {
		case "Name":
			inst.Name = value
		case provider.DeploymentLabel:
			inst.Deployment = value
		}
	}

	return inst
}

// ec2StateToState maps an EC2 instance state to InstanceState
func ec2StateToState(state *ec2types.InstanceState) types.InstanceState {
	if state == nil {
		return types.InstanceStateUnknown
	}
	switch state.Name {
	case ec2types.InstanceStateNameRunning:
		return types.InstanceStateRunning
	case ec2types.InstanceStateNameStopped, ec2types.InstanceStateNameTerminated:
		return types.InstanceStateStopped
	case ec2types.InstanceStateNamePending:
		return types.InstanceStatePending
	case ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameShuttingDown:
		return types.InstanceStateStopping
	default:
		return types.InstanceStateUnknown
	}
}

// resolveInstance looks up a non-terminated instance by Name tag or ID
func (p *Provisioner) resolveInstance(ctx context.Context, nameOrID string) (*types.Instance, error) {
	all, err := p.ListInstances(ctx, &provider.FleetFilter{State: "all"})
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].Name == nameOrID || all[i].ID == nameOrID {
			return &all[i], nil
		}
	}

	return nil, fmt.Errorf("instance %s: %w", nameOrID, provider.ErrNotFound)
}

// buildRunInput assembles the RunInstances request for an instance spec.
// A public IP has to be requested on a network interface specification,
// which is also where the security groups move in that case; RunInstances
// rejects top-level SecurityGroupIds alongside NetworkInterfaces.
func buildRunInput(spec *provider.InstanceSpec, sgIDs []string) *ec2.RunInstancesInput {
	tags := []ec2types.Tag{
		{Key: aws.String("Name"), Value: aws.String(spec.Name)},
	}
	for k, v := range spec.Labels {
		tags = append(tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.Image),
		InstanceType: ec2types.InstanceType(spec.MachineType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags:         tags,
			},
		},
	}

	if spec.Zone != "" {
		input.Placement = &ec2types.Placement{
			AvailabilityZone: aws.String(spec.Zone),
		}
	}

	if spec.PublicIP {
		input.NetworkInterfaces = []ec2types.InstanceNetworkInterfaceSpecification{
			{
				DeviceIndex:              aws.Int32(0),
				AssociatePublicIpAddress: aws.Bool(true),
				Groups:                   sgIDs,
			},
		}
	} else if len(sgIDs) > 0 {
		input.SecurityGroupIds = sgIDs
	}

	if spec.StartupScript != "" {
		input.UserData = aws.String(
			base64.StdEncoding.EncodeToString([]byte(spec.StartupScript)),
		)
	}

	return input
}

// CreateInstance launches a single EC2 instance per the spec and waits
// until it is running
func (p *Provisioner) CreateInstance(ctx context.Context, spec *provider.InstanceSpec) (*types.Instance, error) {
	sgIDs, err := p.securityGroupIDs(ctx, spec.NetworkTags)
	if err != nil {
		return nil, err
	}

	output, err := p.client.EC2.RunInstances(ctx, buildRunInput(spec, sgIDs))
	if err != nil {
		return nil, fmt.Errorf("run instance %s: %w", spec.Name, err)
	}
	if len(output.Instances) == 0 {
		return nil, fmt.Errorf("run instance %s: no instance returned", spec.Name)
	}

	id := deref(output.Instances[0].InstanceId)

	waiter := ec2.NewInstanceRunningWaiter(p.client.EC2)
	describeInput := &ec2.DescribeInstancesInput{InstanceIds: []string{id}}
	if err := waiter.Wait(ctx, describeInput, 5*time.Minute); err != nil {
		return nil, fmt.Errorf("wait for instance %s: %w", spec.Name, err)
	}

	described, err := p.client.EC2.DescribeInstances(ctx, describeInput)
	if err != nil {
		return nil, fmt.Errorf("describe instance %s: %w", spec.Name, err)
	}
	for _, reservation := range described.Reservations {
		for _, inst := range reservation.Instances {
			out := toInstance(inst)
			return &out, nil
		}
	}

	return nil, fmt.Errorf("instance %s: %w", spec.Name, provider.ErrNotFound)
}

// DeleteInstance terminates an instance by name or ID
func (p *Provisioner) DeleteInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	_, err = p.client.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{inst.ID},
	})
	if err != nil {
		return fmt.Errorf("terminate instance %s: %w", name, err)
	}

	waiter := ec2.NewInstanceTerminatedWaiter(p.client.EC2)
	return waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{inst.ID},
	}, 5*time.Minute)
}

// StartInstance starts a stopped instance
func (p *Provisioner) StartInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	_, err = p.client.EC2.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{inst.ID},
	})
	if err != nil {
		return fmt.Errorf("start instance %s: %w", name, err)
	}
	return nil
}

// StopInstance stops a running instance
func (p *Provisioner) StopInstance(ctx context.Context, name string) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	_, err = p.client.EC2.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{inst.ID},
	})
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", name, err)
	}
	return nil
}

// WaitStopped blocks until the instance is stopped. Bake user-data scripts
// end with a poweroff, which EC2 turns into a stop by default.
func (p *Provisioner) WaitStopped(ctx context.Context, name string, timeout time.Duration) error {
	inst, err := p.resolveInstance(ctx, name)
	if err != nil {
		return err
	}

	waiter := ec2.NewInstanceStoppedWaiter(p.client.EC2)
	return waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{inst.ID},
	}, timeout)
}

// deref safely dereferences a string pointer
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
