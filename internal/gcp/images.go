package gcp

import (
	"context"
	"fmt"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"

	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

// newImagesClient returns an authenticated GCE Images REST client.
func (p *Provisioner) newImagesClient(ctx context.Context) (*compute.ImagesClient, error) {
	return compute.NewImagesRESTClient(ctx,
		option.WithTokenSource(p.client.Credentials().TokenSource),
	)
}

// gceToImage converts a GCE Image proto to the unified Image type.
func gceToImage(img *computepb.Image, project string) types.Image {
	out := types.Image{
		Name:     img.GetName(),
		Family:   img.GetFamily(),
		Project:  project,
		Status:   img.GetStatus(),
		SizeGB:   img.GetDiskSizeGb(),
		SelfLink: img.GetSelfLink(),
		Provider: "gcp",
	}
	if ts := img.GetCreationTimestamp(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.CreatedAt = t
		}
	}
	return out
}

// ResolveImage resolves an image selection to a concrete image. With
// UseLatest it asks GCE for the newest non-deprecated image of the family;
// otherwise it fetches the named image. Either way a missing image is an
// error, surfaced before any instance is created.
func (p *Provisioner) ResolveImage(ctx context.Context, sel *provider.ImageSelection) (*types.Image, error) {
	ic, err := p.newImagesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create images client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	project := sel.Project
	if project == "" {
		project = p.client.Project()
	}

	if sel.UseLatest {
		img, err := ic.GetFromFamily(ctx, &computepb.GetFromFamilyImageRequest{
			Project: project,
			Family:  sel.Family,
		})
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("image family %s/%s: %w", project, sel.Family, provider.ErrNotFound)
			}
			return nil, fmt.Errorf("resolve image family %s: %w", sel.Family, err)
		}
		out := gceToImage(img, project)
		return &out, nil
	}

	img, err := ic.Get(ctx, &computepb.GetImageRequest{
		Project: project,
		Image:   sel.Name,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("image %s/%s: %w", project, sel.Name, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("get image %s: %w", sel.Name, err)
	}

	out := gceToImage(img, project)
	return &out, nil
}

// CreateImage snapshots the boot disk of a stopped instance into a new
// image. GCE names the boot disk after the instance, so the source disk
// reference is derived from the instance name and zone.
func (p *Provisioner) CreateImage(ctx context.Context, instanceName, imageName, family string) (*types.Image, error) {
	inst, err := p.resolveInstance(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	ic, err := p.newImagesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create images client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	img := &computepb.Image{
		Name: proto.String(imageName),
		SourceDisk: proto.String(fmt.Sprintf(
			"zones/%s/disks/%s", inst.Zone, inst.Name,
		)),
	}
	if family != "" {
		img.Family = proto.String(family)
	}

	op, err := ic.Insert(ctx, &computepb.InsertImageRequest{
		Project:       p.client.Project(),
		ImageResource: img,
	})
	if err != nil {
		return nil, fmt.Errorf("insert image %s: %w", imageName, err)
	}
	if err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for image %s: %w", imageName, err)
	}

	created, err := ic.Get(ctx, &computepb.GetImageRequest{
		Project: p.client.Project(),
		Image:   imageName,
	})
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", imageName, err)
	}

	out := gceToImage(created, p.client.Project())
	return &out, nil
}

// DeleteImage removes an image from the client's project.
func (p *Provisioner) DeleteImage(ctx context.Context, name string) error {
	ic, err := p.newImagesClient(ctx)
	if err != nil {
		return fmt.Errorf("create images client: %w", err)
	}
	defer func() { _ = ic.Close() }()

	op, err := ic.Delete(ctx, &computepb.DeleteImageRequest{
		Project: p.client.Project(),
		Image:   name,
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete image %s: %w", name, err)
	}
	return op.Wait(ctx)
}
