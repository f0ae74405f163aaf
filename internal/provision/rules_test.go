package provision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh91/nimbus/internal/config"
)

func TestFirewallRulesWebRuleIsWorldOpen(t *testing.T) {
	dep := testDeployment()
	dep.WebPort = 8080
	dep.SSHSourceRanges = []string{"10.0.0.0/8"}

	rules := FirewallRules(dep)
	require.Len(t, rules, 2)

	web := rules[0]
	assert.Equal(t, "web-allow-web", web.Name)
	assert.Equal(t, "tcp", web.Protocol)
	assert.Equal(t, []string{"8080"}, web.Ports)
	// The web rule ignores the deployment's SSH ranges and stays world-open
	assert.Equal(t, []string{"0.0.0.0/0"}, web.SourceRanges)
	assert.Equal(t, dep.NetworkTags, web.TargetTags)
}

func TestFirewallRulesSSHFollowsDeployment(t *testing.T) {
	dep := testDeployment()
	dep.SSHSourceRanges = []string{"203.0.113.0/24"}

	rules := FirewallRules(dep)
	ssh := rules[1]

	assert.Equal(t, "web-allow-ssh", ssh.Name)
	assert.Equal(t, []string{"22"}, ssh.Ports)
	assert.Equal(t, []string{"203.0.113.0/24"}, ssh.SourceRanges)
}

func TestWebStartupScriptDefaultPort(t *testing.T) {
	script := WebStartupScript(80)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, "apt-get install -y nginx")
	assert.Contains(t, script, "systemctl restart nginx")
	assert.NotContains(t, script, "sed")
}

func TestWebStartupScriptCustomPort(t *testing.T) {
	script := WebStartupScript(8080)

	assert.Contains(t, script, "listen 8080 ")
	assert.Contains(t, script, "listen [::]:8080 ")
}

func TestFirewallRulesUseDeploymentDefaults(t *testing.T) {
	dep := &config.Deployment{
		Name:        "api",
		Count:       1,
		MachineType: "e2-micro",
		Zone:        "us-central1-a",
		Image:       config.ImageConfig{Name: "api-image"},
	}
	dep.ApplyDefaults()

	rules := FirewallRules(dep)
	assert.Equal(t, []string{"80"}, rules[0].Ports)
	assert.Equal(t, []string{"api"}, rules[0].TargetTags)
	assert.Equal(t, []string{"0.0.0.0/0"}, rules[1].SourceRanges)
}
