package imagebuild

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh91/nimbus/internal/retry"
	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// mockBackend records calls and fails on demand
type mockBackend struct {
	calls []string

	createdSpec *provider.InstanceSpec

	resolveErr error
	createErr  error
	waitErr    error
	imageErr   error
}

func (m *mockBackend) ResolveImage(_ context.Context, sel *provider.ImageSelection) (*types.Image, error) {
	m.calls = append(m.calls, "resolve")
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return &types.Image{
		Name:     "debian-12-bookworm-v20250101",
		Family:   sel.Family,
		Project:  sel.Project,
		SelfLink: "projects/debian-cloud/global/images/debian-12-bookworm-v20250101",
	}, nil
}

func (m *mockBackend) CreateInstance(_ context.Context, spec *provider.InstanceSpec) (*types.Instance, error) {
	m.calls = append(m.calls, "create "+spec.Name)
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdSpec = spec
	return &types.Instance{Name: spec.Name, State: types.InstanceStateRunning}, nil
}

func (m *mockBackend) DeleteInstance(_ context.Context, name string) error {
	m.calls = append(m.calls, "delete "+name)
	return nil
}

func (m *mockBackend) WaitStopped(_ context.Context, name string, _ time.Duration) error {
	m.calls = append(m.calls, "wait "+name)
	return m.waitErr
}

func (m *mockBackend) CreateImage(_ context.Context, instanceName, imageName, family string) (*types.Image, error) {
	m.calls = append(m.calls, "image "+imageName)
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	return &types.Image{Name: imageName, Family: family, Status: "READY"}, nil
}

func testSpec() *BuildSpec {
	return &BuildSpec{
		ImageName:   "web-20250101-000000",
		Family:      "web-golden",
		BaseFamily:  "debian-12",
		BaseProject: "debian-cloud",
		MachineType: "e2-micro",
		Zone:        "us-central1-a",
	}
}

func quietBuilder(backend Backend) *Builder {
	return NewBuilder(backend, WithLogf(func(string, ...interface{}) {}))
}

func TestBuildHappyPath(t *testing.T) {
	backend := &mockBackend{}
	builder := quietBuilder(backend)

	img, err := builder.Build(context.Background(), testSpec())
	require.NoError(t, err)

	assert.Equal(t, "web-20250101-000000", img.Name)
	assert.Equal(t, "web-golden", img.Family)

	assert.Equal(t, []string{
		"resolve",
		"create bake-web-20250101-000000",
		"wait bake-web-20250101-000000",
		"image web-20250101-000000",
		"delete bake-web-20250101-000000",
	}, backend.calls)
}

func TestBuildInstanceSpec(t *testing.T) {
	backend := &mockBackend{}
	builder := quietBuilder(backend)

	_, err := builder.Build(context.Background(), testSpec())
	require.NoError(t, err)
	require.NotNil(t, backend.createdSpec)

	spec := backend.createdSpec
	assert.True(t, spec.PublicIP, "build instance needs egress for package installs")
	assert.Contains(t, spec.StartupScript, "apt-get install -y nginx")
	assert.Contains(t, spec.StartupScript, "systemctl stop nginx")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(spec.StartupScript), "poweroff"))
}

func TestBuildRequiresImageName(t *testing.T) {
	backend := &mockBackend{}
	builder := quietBuilder(backend)

	spec := testSpec()
	spec.ImageName = ""

	_, err := builder.Build(context.Background(), spec)
	require.Error(t, err)
	assert.Empty(t, backend.calls)
}

func TestBuildRequiresBaseFamily(t *testing.T) {
	backend := &mockBackend{}
	builder := quietBuilder(backend)

	spec := testSpec()
	spec.BaseFamily = ""

	_, err := builder.Build(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base family is required")
	assert.Empty(t, backend.calls)
}

func TestBuildFailsWhenBaseImageMissing(t *testing.T) {
	backend := &mockBackend{resolveErr: errors.New("no such family")}
	builder := quietBuilder(backend)

	_, err := builder.Build(context.Background(), testSpec())
	require.Error(t, err)
	assert.Equal(t, []string{"resolve"}, backend.calls)
}

func TestBuildDeletesInstanceWhenProvisioningTimesOut(t *testing.T) {
	backend := &mockBackend{waitErr: errors.New("did not stop within 20m0s")}
	builder := quietBuilder(backend)

	_, err := builder.Build(context.Background(), testSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provisioning did not complete")

	// The temp instance is deleted and no image was created
	assert.Contains(t, backend.calls, "delete bake-web-20250101-000000")
	for _, call := range backend.calls {
		assert.NotContains(t, call, "image ")
	}
}

func TestBuildDeletesInstanceWhenImageCreationFails(t *testing.T) {
	backend := &mockBackend{imageErr: retry.Permanent(errors.New("quota exceeded"))}
	builder := quietBuilder(backend)

	_, err := builder.Build(context.Background(), testSpec())
	require.Error(t, err)
	assert.Contains(t, backend.calls, "delete bake-web-20250101-000000")
}
