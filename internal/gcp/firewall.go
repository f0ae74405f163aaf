package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"

	"github.com/tranqh91/nimbus/pkg/provider"
)

// newFirewallsClient returns an authenticated GCE Firewalls REST client.
func (p *Provisioner) newFirewallsClient(ctx context.Context) (*compute.FirewallsClient, error) {
	return compute.NewFirewallsRESTClient(ctx,
		option.WithTokenSource(p.client.Credentials().TokenSource),
	)
}

// isNotFound reports whether err is a GCE 404.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// toGCEFirewall converts a FirewallRule to a GCE firewall resource on the
// default network.
func toGCEFirewall(rule provider.FirewallRule) *computepb.Firewall {
	return &computepb.Firewall{
		Name:        proto.String(rule.Name),
		Description: proto.String(rule.Description),
		Network:     proto.String("global/networks/default"),
		Direction:   proto.String("INGRESS"),
		Allowed: []*computepb.Allowed{
			{
				IPProtocol: proto.String(rule.Protocol),
				Ports:      rule.Ports,
			},
		},
		SourceRanges: rule.SourceRanges,
		TargetTags:   rule.TargetTags,
	}
}

// EnsureFirewall creates each rule, or patches it when it already exists so
// re-applies converge on the declared state.
func (p *Provisioner) EnsureFirewall(ctx context.Context, rules []provider.FirewallRule) error {
	fc, err := p.newFirewallsClient(ctx)
	if err != nil {
		return fmt.Errorf("create firewalls client: %w", err)
	}
	defer func() { _ = fc.Close() }()

	for _, rule := range rules {
		fw := toGCEFirewall(rule)

		_, err := fc.Get(ctx, &computepb.GetFirewallRequest{
			Project:  p.client.Project(),
			Firewall: rule.Name,
		})
		switch {
		case err == nil:
			op, err := fc.Patch(ctx, &computepb.PatchFirewallRequest{
				Project:          p.client.Project(),
				Firewall:         rule.Name,
				FirewallResource: fw,
			})
			if err != nil {
				return fmt.Errorf("patch firewall %s: %w", rule.Name, err)
			}
			if err := op.Wait(ctx); err != nil {
				return fmt.Errorf("wait for firewall %s: %w", rule.Name, err)
			}

		case isNotFound(err):
			op, err := fc.Insert(ctx, &computepb.InsertFirewallRequest{
				Project:          p.client.Project(),
				FirewallResource: fw,
			})
			if err != nil {
				return fmt.Errorf("insert firewall %s: %w", rule.Name, err)
			}
			if err := op.Wait(ctx); err != nil {
				return fmt.Errorf("wait for firewall %s: %w", rule.Name, err)
			}

		default:
			return fmt.Errorf("get firewall %s: %w", rule.Name, err)
		}
	}

	return nil
}

// DeleteFirewall removes the rules by name. Rules that are already gone
// are skipped so destroy stays idempotent.
func (p *Provisioner) DeleteFirewall(ctx context.Context, rules []provider.FirewallRule) error {
	fc, err := p.newFirewallsClient(ctx)
	if err != nil {
		return fmt.Errorf("create firewalls client: %w", err)
	}
	defer func() { _ = fc.Close() }()

	for _, rule := range rules {
		name := rule.Name
		op, err := fc.Delete(ctx, &computepb.DeleteFirewallRequest{
			Project:  p.client.Project(),
			Firewall: name,
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fmt.Errorf("delete firewall %s: %w", name, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("wait for firewall %s: %w", name, err)
		}
	}

	return nil
}
