package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// fakeBackend is an in-memory Provisioner that records the order of
// mutating calls.
type fakeBackend struct {
	instances map[string]types.Instance
	firewalls map[string]provider.FirewallRule
	images    map[string]types.Image

	calls []string

	resolveErr error
	createErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		instances: make(map[string]types.Instance),
		firewalls: make(map[string]provider.FirewallRule),
		images: map[string]types.Image{
			"web-golden": {Name: "web-golden-v20250101", Family: "web-golden", Provider: "gcp"},
		},
	}
}

func (f *fakeBackend) ListInstances(_ context.Context, filter *provider.FleetFilter) ([]types.Instance, error) {
	var out []types.Instance
	for _, inst := range f.instances {
		if filter != nil && filter.Deployment != "" && inst.Deployment != filter.Deployment {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func (f *fakeBackend) CreateInstance(_ context.Context, spec *provider.InstanceSpec) (*types.Instance, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.calls = append(f.calls, "create "+spec.Name)
	inst := types.Instance{
		ID:         "id-" + spec.Name,
		Name:       spec.Name,
		State:      types.InstanceStateRunning,
		PublicIP:   fmt.Sprintf("34.0.0.%d", len(f.instances)+1),
		Zone:       spec.Zone,
		Labels:     spec.Labels,
		Deployment: spec.Labels[provider.DeploymentLabel],
	}
	f.instances[spec.Name] = inst
	return &inst, nil
}

func (f *fakeBackend) DeleteInstance(_ context.Context, name string) error {
	if _, ok := f.instances[name]; !ok {
		return fmt.Errorf("instance %s: %w", name, provider.ErrNotFound)
	}
	f.calls = append(f.calls, "delete "+name)
	delete(f.instances, name)
	return nil
}

func (f *fakeBackend) StartInstance(context.Context, string) error { return nil }
func (f *fakeBackend) StopInstance(context.Context, string) error  { return nil }

func (f *fakeBackend) WaitStopped(context.Context, string, time.Duration) error { return nil }

func (f *fakeBackend) EnsureFirewall(_ context.Context, rules []provider.FirewallRule) error {
	for _, rule := range rules {
		f.calls = append(f.calls, "ensure-firewall "+rule.Name)
		f.firewalls[rule.Name] = rule
	}
	return nil
}

func (f *fakeBackend) DeleteFirewall(_ context.Context, rules []provider.FirewallRule) error {
	for _, rule := range rules {
		f.calls = append(f.calls, "delete-firewall "+rule.Name)
		delete(f.firewalls, rule.Name)
	}
	return nil
}

func (f *fakeBackend) ResolveImage(_ context.Context, sel *provider.ImageSelection) (*types.Image, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if sel.UseLatest {
		if img, ok := f.images[sel.Family]; ok {
			return &img, nil
		}
		return nil, fmt.Errorf("image family %s: %w", sel.Family, provider.ErrNotFound)
	}
	for _, img := range f.images {
		if img.Name == sel.Name {
			return &img, nil
		}
	}
	return nil, fmt.Errorf("image %s: %w", sel.Name, provider.ErrNotFound)
}

func (f *fakeBackend) CreateImage(_ context.Context, _, imageName, family string) (*types.Image, error) {
	img := types.Image{Name: imageName, Family: family}
	f.images[family] = img
	return &img, nil
}

func testDeployment() *config.Deployment {
	dep := &config.Deployment{
		Name:        "web",
		Count:       2,
		MachineType: "e2-micro",
		Zone:        "us-central1-a",
		Image:       config.ImageConfig{Family: "web-golden", UseLatest: true},
	}
	dep.ApplyDefaults()
	return dep
}

func quietEngine(backend provider.Provisioner) *Engine {
	return NewEngine(backend, WithLogf(func(string, ...interface{}) {}))
}

func TestApplyCreatesFleet(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	out, err := engine.Apply(context.Background(), testDeployment())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Created)
	assert.Equal(t, 0, out.Deleted)
	assert.Equal(t, 0, out.Unchanged)
	assert.Len(t, out.ExternalIPs, 2)
	assert.Equal(t, "web-golden-v20250101", out.Image)

	assert.Contains(t, backend.instances, "web-0")
	assert.Contains(t, backend.instances, "web-1")
	assert.Contains(t, backend.firewalls, "web-allow-web")
	assert.Contains(t, backend.firewalls, "web-allow-ssh")
}

func TestApplyUnchangedIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	_, err := engine.Apply(context.Background(), testDeployment())
	require.NoError(t, err)

	backend.calls = nil

	out, err := engine.Apply(context.Background(), testDeployment())
	require.NoError(t, err)

	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 0, out.Deleted)
	assert.Equal(t, 2, out.Unchanged)
	for _, call := range backend.calls {
		assert.NotContains(t, call, "create ")
		assert.NotContains(t, call, "delete ")
	}
}

func TestApplyScalesDown(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	_, err := engine.Apply(context.Background(), testDeployment())
	require.NoError(t, err)

	dep := testDeployment()
	dep.Count = 1

	out, err := engine.Apply(context.Background(), dep)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 1, out.Deleted)
	assert.Equal(t, 1, out.Unchanged)
	assert.Len(t, backend.instances, 1)
	assert.Contains(t, backend.instances, "web-0")
}

func TestApplyFailsBeforeTouchingResourcesOnBadImage(t *testing.T) {
	backend := newFakeBackend()
	backend.resolveErr = fmt.Errorf("image: %w", provider.ErrNotFound)
	engine := quietEngine(backend)

	_, err := engine.Apply(context.Background(), testDeployment())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrNotFound)

	assert.Empty(t, backend.calls)
	assert.Empty(t, backend.instances)
	assert.Empty(t, backend.firewalls)
}

func TestApplyDoesNotRetryNotFoundCreates(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = fmt.Errorf("image gone: %w", provider.ErrNotFound)
	engine := quietEngine(backend)

	start := time.Now()
	_, err := engine.Apply(context.Background(), testDeployment())
	require.Error(t, err)

	// A permanent error must short-circuit instead of backing off
	assert.Less(t, time.Since(start), time.Second)
}

func TestExternalIPsFollowInstanceOrder(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	dep := testDeployment()
	dep.Count = 3

	out, err := engine.Apply(context.Background(), dep)
	require.NoError(t, err)
	require.Len(t, out.ExternalIPs, 3)

	for i, name := range dep.InstanceNames() {
		assert.Equal(t, backend.instances[name].PublicIP, out.ExternalIPs[i])
	}
}

func TestDestroyRemovesInstancesThenFirewall(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	dep := testDeployment()
	_, err := engine.Apply(context.Background(), dep)
	require.NoError(t, err)

	backend.calls = nil

	require.NoError(t, engine.Destroy(context.Background(), dep))

	assert.Empty(t, backend.instances)
	assert.Empty(t, backend.firewalls)

	// Every instance deletion must come before the first firewall deletion
	firstFirewall := -1
	lastInstance := -1
	for i, call := range backend.calls {
		switch {
		case call == "delete web-0" || call == "delete web-1":
			lastInstance = i
		case firstFirewall == -1 && strings.HasPrefix(call, "delete-firewall"):
			firstFirewall = i
		}
	}
	require.NotEqual(t, -1, firstFirewall)
	require.NotEqual(t, -1, lastInstance)
	assert.Less(t, lastInstance, firstFirewall)
}

func TestDestroyEmptyDeploymentIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	err := engine.Destroy(context.Background(), testDeployment())
	require.NoError(t, err)
	assert.Empty(t, backend.instances)
}

func TestApplyOnlyTouchesItsOwnDeployment(t *testing.T) {
	backend := newFakeBackend()
	backend.instances["other-0"] = types.Instance{
		Name:       "other-0",
		Deployment: "other",
		Labels:     map[string]string{provider.DeploymentLabel: "other"},
	}
	engine := quietEngine(backend)

	dep := testDeployment()
	_, err := engine.Apply(context.Background(), dep)
	require.NoError(t, err)

	assert.Contains(t, backend.instances, "other-0")

	require.NoError(t, engine.Destroy(context.Background(), dep))
	assert.Contains(t, backend.instances, "other-0")
}

var errBoom = errors.New("boom")

func TestApplyRetriesTransientCreateFailures(t *testing.T) {
	backend := newFakeBackend()
	engine := quietEngine(backend)

	attempts := 0
	flaky := &flakyBackend{fakeBackend: backend, failures: 1, attempts: &attempts}

	engine = quietEngine(flaky)
	dep := testDeployment()
	dep.Count = 1

	out, err := engine.Apply(context.Background(), dep)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 2, attempts)
}

// flakyBackend fails the first n CreateInstance calls with a transient error
type flakyBackend struct {
	*fakeBackend
	failures int
	attempts *int
}

func (f *flakyBackend) CreateInstance(ctx context.Context, spec *provider.InstanceSpec) (*types.Instance, error) {
	*f.attempts++
	if f.failures > 0 {
		f.failures--
		return nil, errBoom
	}
	return f.fakeBackend.CreateInstance(ctx, spec)
}
