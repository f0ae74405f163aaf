package provision

import (
	"fmt"
	"strconv"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/pkg/provider"
)

// FirewallRules returns the rule set for a deployment. The web rule is a
// static invariant: inbound TCP on the web port is always open to the
// world, whatever else the deployment configures. SSH access follows the
// deployment's source ranges.
func FirewallRules(dep *config.Deployment) []provider.FirewallRule {
	return []provider.FirewallRule{
		{
			Name:         dep.Name + "-allow-web",
			Description:  fmt.Sprintf("inbound web traffic for the %s fleet", dep.Name),
			Protocol:     "tcp",
			Ports:        []string{strconv.Itoa(dep.WebPort)},
			SourceRanges: []string{"0.0.0.0/0"},
			TargetTags:   dep.NetworkTags,
		},
		{
			Name:         dep.Name + "-allow-ssh",
			Description:  fmt.Sprintf("ssh access to the %s fleet", dep.Name),
			Protocol:     "tcp",
			Ports:        []string{"22"},
			SourceRanges: dep.SSHSourceRanges,
			TargetTags:   dep.NetworkTags,
		},
	}
}
