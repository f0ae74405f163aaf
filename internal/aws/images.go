package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// familyTag records the image family on AMIs created by bake. AWS has no
// family concept, so latest-from-family lookups on baked images filter on
// this tag; public OS families resolve through the SSM parameter store.
const familyTag = "nimbus-family"

// ResolveImage resolves an image selection to a concrete AMI.
//
// With UseLatest the family is tried two ways: first as an SSM public
// parameter path (how AWS publishes "latest Ubuntu/AL2023" AMI IDs), then
// as a nimbus-family tag lookup for self-baked images. An explicit Name is
// treated as an AMI ID.
func (p *Provisioner) ResolveImage(ctx context.Context, sel *provider.ImageSelection) (*types.Image, error) {
	if sel.UseLatest {
		if id, err := p.latestFromParameter(ctx, sel.Family); err == nil {
			return p.describeImage(ctx, id)
		}
		return p.latestFromFamilyTag(ctx, sel.Family)
	}

	return p.describeImage(ctx, sel.Name)
}

// latestFromParameter reads an AMI ID from the SSM public parameter store
func (p *Provisioner) latestFromParameter(ctx context.Context, path string) (string, error) {
	output, err := p.client.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(path),
	})
	if err != nil {
		return "", fmt.Errorf("get ssm parameter %s: %w", path, err)
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %s: %w", path, provider.ErrNotFound)
	}
	return *output.Parameter.Value, nil
}

// latestFromFamilyTag returns the newest self-owned AMI carrying the family tag
func (p *Provisioner) latestFromFamilyTag(ctx context.Context, family string) (*types.Image, error) {
	output, err := p.client.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + familyTag),
				Values: []string{family},
			},
			{
				Name:   aws.String("state"),
				Values: []string{"available"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe images for family %s: %w", family, err)
	}
	if len(output.Images) == 0 {
		return nil, fmt.Errorf("image family %s: %w", family, provider.ErrNotFound)
	}

	latest := output.Images[0]
	latestTime := amiCreationTime(latest)
	for _, img := range output.Images[1:] {
		if t := amiCreationTime(img); t.After(latestTime) {
			latest = img
			latestTime = t
		}
	}

	out := toImage(latest)
	return &out, nil
}

// describeImage fetches a single AMI by ID
func (p *Provisioner) describeImage(ctx context.Context, id string) (*types.Image, error) {
	output, err := p.client.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("describe image %s: %w", id, err)
	}
	if len(output.Images) == 0 {
		return nil, fmt.Errorf("image %s: %w", id, provider.ErrNotFound)
	}

	out := toImage(output.Images[0])
	return &out, nil
}

// toImage converts an EC2 Image to the unified Image type
func toImage(img ec2types.Image) types.Image {
	out := types.Image{
		Name:     deref(img.ImageId),
		Status:   string(img.State),
		Provider: "aws",
	}
	out.CreatedAt = amiCreationTime(img)
	for _, tag := range img.Tags {
		if deref(tag.Key) == familyTag {
			out.Family = deref(tag.Value)
		}
	}
	return out
}

// amiCreationTime parses the AMI's RFC 3339 creation date, zero on failure
func amiCreationTime(img ec2types.Image) time.Time {
	t, err := time.Parse(time.RFC3339, deref(img.CreationDate))
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateImage snapshots a stopped instance into a new AMI, tags it with
// the family, and waits until it is available.
func (p *Provisioner) CreateImage(ctx context.Context, instanceName, imageName, family string) (*types.Image, error) {
	inst, err := p.resolveInstance(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	input := &ec2.CreateImageInput{
		InstanceId: aws.String(inst.ID),
		Name:       aws.String(imageName),
	}
	if family != "" {
		input.TagSpecifications = []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeImage,
				Tags: []ec2types.Tag{
					{Key: aws.String(familyTag), Value: aws.String(family)},
				},
			},
		}
	}

	output, err := p.client.EC2.CreateImage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create image %s: %w", imageName, err)
	}

	id := deref(output.ImageId)
	waiter := ec2.NewImageAvailableWaiter(p.client.EC2)
	err = waiter.Wait(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{id},
	}, 20*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("wait for image %s: %w", imageName, err)
	}

	return p.describeImage(ctx, id)
}

// DeleteImage deregisters an AMI by ID. The backing snapshots are left in
// place; EC2 garbage-collects them separately.
func (p *Provisioner) DeleteImage(ctx context.Context, name string) error {
	_, err := p.client.EC2.DeregisterImage(ctx, &ec2.DeregisterImageInput{
		ImageId: aws.String(name),
	})
	if err != nil {
		if hasErrorCode(err, "InvalidAMIID.NotFound") || hasErrorCode(err, "InvalidAMIID.Unavailable") {
			return nil
		}
		return fmt.Errorf("deregister image %s: %w", name, err)
	}
	return nil
}
