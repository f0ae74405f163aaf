package aws

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

func TestToInstance(t *testing.T) {
	launched := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	inst := toInstance(ec2types.Instance{
		InstanceId:       aws.String("i-0abc123"),
		InstanceType:     ec2types.InstanceTypeT3Micro,
		PrivateIpAddress: aws.String("172.31.0.10"),
		PublicIpAddress:  aws.String("54.0.0.1"),
		LaunchTime:       &launched,
		State: &ec2types.InstanceState{
			Name: ec2types.InstanceStateNameRunning,
		},
		Placement: &ec2types.Placement{
			AvailabilityZone: aws.String("us-east-1a"),
		},
		Tags: []ec2types.Tag{
			{Key: aws.String("Name"), Value: aws.String("web-0")},
			{Key: aws.String(provider.DeploymentLabel), Value: aws.String("web")},
			{Key: aws.String("env"), Value: aws.String("prod")},
		},
	})

	assert.Equal(t, "i-0abc123", inst.ID)
	assert.Equal(t, "web-0", inst.Name)
	assert.Equal(t, types.InstanceStateRunning, inst.State)
	assert.Equal(t, "t3.micro", inst.Type)
	assert.Equal(t, "us-east-1a", inst.Zone)
	assert.Equal(t, "172.31.0.10", inst.PrivateIP)
	assert.Equal(t, "54.0.0.1", inst.PublicIP)
	assert.Equal(t, "web", inst.Deployment)
	assert.Equal(t, "prod", inst.Labels["env"])
	assert.Equal(t, launched, inst.LaunchedAt)
	assert.Equal(t, "aws", inst.Provider)
}

func TestToInstanceMinimal(t *testing.T) {
	inst := toInstance(ec2types.Instance{
		InstanceId: aws.String("i-0def456"),
	})

	assert.Equal(t, "i-0def456", inst.ID)
	assert.Empty(t, inst.Name)
	assert.Equal(t, types.InstanceStateUnknown, inst.State)
	assert.Empty(t, inst.Deployment)
}

func TestBuildRunInputPublicIP(t *testing.T) {
	spec := &provider.InstanceSpec{
		Name:          "web-0",
		Zone:          "us-east-1a",
		MachineType:   "t3.micro",
		Image:         "ami-0abc123",
		StartupScript: "#!/bin/bash\n",
		PublicIP:      true,
	}

	input := buildRunInput(spec, []string{"sg-1", "sg-2"})

	require.Len(t, input.NetworkInterfaces, 1)
	nic := input.NetworkInterfaces[0]
	assert.Equal(t, int32(0), *nic.DeviceIndex)
	assert.True(t, *nic.AssociatePublicIpAddress)
	assert.Equal(t, []string{"sg-1", "sg-2"}, nic.Groups)

	// Groups ride on the interface spec, never alongside it
	assert.Empty(t, input.SecurityGroupIds)

	assert.Equal(t, "ami-0abc123", *input.ImageId)
	assert.Equal(t, "us-east-1a", *input.Placement.AvailabilityZone)
	assert.NotNil(t, input.UserData)
}

func TestBuildRunInputPrivateOnly(t *testing.T) {
	spec := &provider.InstanceSpec{
		Name:        "web-0",
		MachineType: "t3.micro",
		Image:       "ami-0abc123",
	}

	input := buildRunInput(spec, []string{"sg-1"})

	assert.Empty(t, input.NetworkInterfaces)
	assert.Equal(t, []string{"sg-1"}, input.SecurityGroupIds)
	assert.Nil(t, input.Placement)
	assert.Nil(t, input.UserData)
}

func TestEC2StateToState(t *testing.T) {
	state := func(name ec2types.InstanceStateName) *ec2types.InstanceState {
		return &ec2types.InstanceState{Name: name}
	}

	assert.Equal(t, types.InstanceStateRunning, ec2StateToState(state(ec2types.InstanceStateNameRunning)))
	assert.Equal(t, types.InstanceStateStopped, ec2StateToState(state(ec2types.InstanceStateNameStopped)))
	assert.Equal(t, types.InstanceStateStopped, ec2StateToState(state(ec2types.InstanceStateNameTerminated)))
	assert.Equal(t, types.InstanceStatePending, ec2StateToState(state(ec2types.InstanceStateNamePending)))
	assert.Equal(t, types.InstanceStateStopping, ec2StateToState(state(ec2types.InstanceStateNameStopping)))
	assert.Equal(t, types.InstanceStateStopping, ec2StateToState(state(ec2types.InstanceStateNameShuttingDown)))
	assert.Equal(t, types.InstanceStateUnknown, ec2StateToState(nil))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "x", deref(aws.String("x")))
	assert.Equal(t, "", deref(nil))
}
