package gcp

import (
	"testing"

	"cloud.google.com/go/compute/apiv1/computepb"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/proto"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *provider.FleetFilter
		want   string
	}{
		{
			name:   "nil filter",
			filter: nil,
			want:   "",
		},
		{
			name:   "all state is no filter",
			filter: &provider.FleetFilter{State: "all"},
			want:   "",
		},
		{
			name:   "running",
			filter: &provider.FleetFilter{State: "running"},
			want:   "status=RUNNING",
		},
		{
			name:   "stopped maps to terminated",
			filter: &provider.FleetFilter{State: "stopped"},
			want:   "status=TERMINATED",
		},
		{
			name:   "name prefix",
			filter: &provider.FleetFilter{Name: "web"},
			want:   "name:web",
		},
		{
			name:   "deployment label",
			filter: &provider.FleetFilter{Deployment: "web"},
			want:   "labels." + provider.DeploymentLabel + "=web",
		},
		{
			name:   "combined",
			filter: &provider.FleetFilter{State: "running", Deployment: "web"},
			want:   "status=RUNNING AND labels." + provider.DeploymentLabel + "=web",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestListZone(t *testing.T) {
	// Plain listings stay scoped to the context's default zone
	assert.Equal(t, "us-central1-a", listZone(nil, "us-central1-a"))
	assert.Equal(t, "us-central1-a", listZone(&provider.FleetFilter{State: "running"}, "us-central1-a"))

	// Deployment listings span zones: the fleet's declared zone can differ
	// from the context default, and convergence must still see its members
	assert.Equal(t, "", listZone(&provider.FleetFilter{Deployment: "web"}, "us-central1-a"))
	assert.Equal(t, "", listZone(&provider.FleetFilter{Deployment: "web", State: "all"}, "us-central1-a"))

	assert.Equal(t, "", listZone(nil, ""))
}

func TestGCEStatusToState(t *testing.T) {
	assert.Equal(t, types.InstanceStateRunning, gceStatusToState("RUNNING"))
	assert.Equal(t, types.InstanceStateStopped, gceStatusToState("TERMINATED"))
	assert.Equal(t, types.InstanceStateStopped, gceStatusToState("SUSPENDED"))
	assert.Equal(t, types.InstanceStatePending, gceStatusToState("PROVISIONING"))
	assert.Equal(t, types.InstanceStatePending, gceStatusToState("STAGING"))
	assert.Equal(t, types.InstanceStateStopping, gceStatusToState("STOPPING"))
	assert.Equal(t, types.InstanceStateUnknown, gceStatusToState("REPAIRING"))
}

func TestGCEToInstance(t *testing.T) {
	inst := &computepb.Instance{
		Id:                proto.Uint64(12345),
		Name:              proto.String("web-0"),
		Status:            proto.String("RUNNING"),
		MachineType:       proto.String("projects/p/zones/us-central1-a/machineTypes/e2-micro"),
		Zone:              proto.String("projects/p/zones/us-central1-a"),
		CreationTimestamp: proto.String("2025-01-01T00:00:00Z"),
		Labels: map[string]string{
			provider.DeploymentLabel: "web",
			"env":                    "prod",
		},
		NetworkInterfaces: []*computepb.NetworkInterface{
			{
				NetworkIP: proto.String("10.128.0.2"),
				AccessConfigs: []*computepb.AccessConfig{
					{NatIP: proto.String("34.68.0.1")},
				},
			},
		},
	}

	out := gceToInstance(inst)

	assert.Equal(t, "12345", out.ID)
	assert.Equal(t, "web-0", out.Name)
	assert.Equal(t, types.InstanceStateRunning, out.State)
	assert.Equal(t, "e2-micro", out.Type)
	assert.Equal(t, "us-central1-a", out.Zone)
	assert.Equal(t, "web", out.Deployment)
	assert.Equal(t, "10.128.0.2", out.PrivateIP)
	assert.Equal(t, "34.68.0.1", out.PublicIP)
	assert.Equal(t, "gcp", out.Provider)
	assert.Equal(t, 2025, out.LaunchedAt.Year())
}

func TestGCEToInstanceWithoutNetworking(t *testing.T) {
	out := gceToInstance(&computepb.Instance{
		Name:   proto.String("web-1"),
		Status: proto.String("TERMINATED"),
	})

	assert.Equal(t, "web-1", out.Name)
	assert.Equal(t, types.InstanceStateStopped, out.State)
	assert.Empty(t, out.PublicIP)
	assert.Empty(t, out.PrivateIP)
	assert.Empty(t, out.Deployment)
	assert.NotNil(t, out.Labels)
}
