package aws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh91/nimbus/pkg/provider"
)

func TestSecurityGroupName(t *testing.T) {
	assert.Equal(t, "nimbus-web", securityGroupName("web"))
}

func TestPortRange(t *testing.T) {
	from, to, err := portRange("80")
	require.NoError(t, err)
	assert.Equal(t, int32(80), from)
	assert.Equal(t, int32(80), to)

	from, to, err = portRange("8000-8080")
	require.NoError(t, err)
	assert.Equal(t, int32(8000), from)
	assert.Equal(t, int32(8080), to)

	_, _, err = portRange("http")
	assert.Error(t, err)

	_, _, err = portRange("80-http")
	assert.Error(t, err)
}

func TestToIPPermissions(t *testing.T) {
	rule := provider.FirewallRule{
		Name:         "web-allow-web",
		Description:  "inbound web traffic",
		Protocol:     "tcp",
		Ports:        []string{"80", "443"},
		SourceRanges: []string{"0.0.0.0/0"},
		TargetTags:   []string{"web"},
	}

	perms, err := toIPPermissions(rule)
	require.NoError(t, err)
	require.Len(t, perms, 2)

	assert.Equal(t, "tcp", *perms[0].IpProtocol)
	assert.Equal(t, int32(80), *perms[0].FromPort)
	assert.Equal(t, int32(80), *perms[0].ToPort)
	assert.Equal(t, int32(443), *perms[1].FromPort)

	require.Len(t, perms[0].IpRanges, 1)
	assert.Equal(t, "0.0.0.0/0", *perms[0].IpRanges[0].CidrIp)
}

func TestToIPPermissionsBadPort(t *testing.T) {
	_, err := toIPPermissions(provider.FirewallRule{
		Protocol: "tcp",
		Ports:    []string{"not-a-port"},
	})
	assert.Error(t, err)
}

func TestTargetTags(t *testing.T) {
	rules := []provider.FirewallRule{
		{Name: "a", TargetTags: []string{"web", "api"}},
		{Name: "b", TargetTags: []string{"web"}},
	}

	assert.Equal(t, []string{"web", "api"}, targetTags(rules))
}

func TestTargetsTag(t *testing.T) {
	rule := provider.FirewallRule{TargetTags: []string{"web", "api"}}

	assert.True(t, targetsTag(rule, "web"))
	assert.False(t, targetsTag(rule, "db"))
}
