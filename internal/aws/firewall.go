package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/tranqh91/nimbus/pkg/provider"
)

// securityGroupName maps a network tag to its security group. GCE attaches
// rules to tagged instances; the EC2 analogue is one group per tag.
func securityGroupName(tag string) string {
	return "nimbus-" + tag
}

// hasErrorCode reports whether err carries the given EC2 API error code
func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}

// securityGroupIDs resolves the security groups backing the given network tags
func (p *Provisioner) securityGroupIDs(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = securityGroupName(tag)
	}

	output, err := p.client.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("group-name"),
				Values: names,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe security groups: %w", err)
	}

	ids := make([]string, 0, len(output.SecurityGroups))
	for _, sg := range output.SecurityGroups {
		ids = append(ids, deref(sg.GroupId))
	}
	return ids, nil
}

// portRange parses "80" or "8000-8080" into from/to port numbers
func portRange(port string) (int32, int32, error) {
	if from, to, ok := strings.Cut(port, "-"); ok {
		f, err := strconv.Atoi(from)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid port range %q: %w", port, err)
		}
		t, err := strconv.Atoi(to)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid port range %q: %w", port, err)
		}
		return int32(f), int32(t), nil
	}

	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid port %q: %w", port, err)
	}
	return int32(n), int32(n), nil
}

// toIPPermissions converts a rule's ports and source ranges to EC2 form
func toIPPermissions(rule provider.FirewallRule) ([]ec2types.IpPermission, error) {
	ranges := make([]ec2types.IpRange, 0, len(rule.SourceRanges))
	for _, cidr := range rule.SourceRanges {
		ranges = append(ranges, ec2types.IpRange{
			CidrIp:      aws.String(cidr),
			Description: aws.String(rule.Description),
		})
	}

	perms := make([]ec2types.IpPermission, 0, len(rule.Ports))
	for _, port := range rule.Ports {
		from, to, err := portRange(port)
		if err != nil {
			return nil, err
		}
		perms = append(perms, ec2types.IpPermission{
			IpProtocol: aws.String(rule.Protocol),
			FromPort:   aws.Int32(from),
			ToPort:     aws.Int32(to),
			IpRanges:   ranges,
		})
	}
	return perms, nil
}

// EnsureFirewall creates one security group per target tag and authorizes
// every rule's ingress permissions on it. Duplicate permissions from a
// re-apply are ignored, keeping the operation idempotent.
func (p *Provisioner) EnsureFirewall(ctx context.Context, rules []provider.FirewallRule) error {
	for _, tag := range targetTags(rules) {
		name := securityGroupName(tag)

		_, err := p.client.EC2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
			GroupName:   aws.String(name),
			Description: aws.String("nimbus managed group for tag " + tag),
		})
		if err != nil && !hasErrorCode(err, "InvalidGroup.Duplicate") {
			return fmt.Errorf("create security group %s: %w", name, err)
		}

		for _, rule := range rules {
			if !targetsTag(rule, tag) {
				continue
			}

			perms, err := toIPPermissions(rule)
			if err != nil {
				return err
			}

			_, err = p.client.EC2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
				GroupName:     aws.String(name),
				IpPermissions: perms,
			})
			if err != nil && !hasErrorCode(err, "InvalidPermission.Duplicate") {
				return fmt.Errorf("authorize ingress on %s: %w", name, err)
			}
		}
	}

	return nil
}

// DeleteFirewall removes the security groups the same rules created.
// Missing groups are skipped so destroy stays idempotent.
func (p *Provisioner) DeleteFirewall(ctx context.Context, rules []provider.FirewallRule) error {
	for _, tag := range targetTags(rules) {
		name := securityGroupName(tag)

		_, err := p.client.EC2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
			GroupName: aws.String(name),
		})
		if err != nil && !hasErrorCode(err, "InvalidGroup.NotFound") {
			return fmt.Errorf("delete security group %s: %w", name, err)
		}
	}

	return nil
}

// targetTags returns the distinct target tags across rules, in input order
func targetTags(rules []provider.FirewallRule) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, rule := range rules {
		for _, tag := range rule.TargetTags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// targetsTag reports whether the rule applies to the given tag
func targetsTag(rule provider.FirewallRule, tag string) bool {
	for _, t := range rule.TargetTags {
		if t == tag {
			return true
		}
	}
	return false
}
