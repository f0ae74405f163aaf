package cmd

import (
	"context"
	"fmt"

	"github.com/tranqh91/nimbus/internal/aws"
	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/gcp"
	"github.com/tranqh91/nimbus/pkg/provider"
)

// activeContext resolves the context to operate in: the --context flag if
// given, otherwise the current context from ~/.nimbus.yaml. Flag overrides
// for project, region and zone are applied on top.
func activeContext() (*config.Context, string, error) {
	var (
		cloudCtx *config.Context
		name     string
		err      error
	)

	if contextFlag != "" {
		cfg, loadErr := config.Load()
		if loadErr != nil {
			return nil, "", loadErr
		}
		ctx, ok := cfg.Contexts[contextFlag]
		if !ok {
			return nil, "", fmt.Errorf("context %q not found (run 'nbs contexts')", contextFlag)
		}
		cloudCtx, name = ctx, contextFlag
	} else {
		cloudCtx, name, err = config.GetCurrentContext()
		if err != nil {
			return nil, "", err
		}
		if cloudCtx == nil {
			return nil, "", fmt.Errorf("no context selected: run 'nbs use <context>' first")
		}
	}

	// Copy so flag overrides never leak back into the config file
	resolved := *cloudCtx
	if project != "" {
		resolved.Project = project
	}
	if region != "" {
		resolved.Region = region
	}
	if zone != "" {
		resolved.Zone = zone
	}

	return &resolved, name, nil
}

// getBackend builds the provisioner for the active context.
func getBackend(ctx context.Context) (provider.Provisioner, *config.Context, error) {
	cloudCtx, name, err := activeContext()
	if err != nil {
		return nil, nil, err
	}

	switch cloudCtx.Provider {
	case "gcp":
		client, err := gcp.NewClient(ctx,
			gcp.WithProject(cloudCtx.Project),
			gcp.WithRegion(cloudCtx.Region),
			gcp.WithZone(cloudCtx.Zone),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize GCP client for context %q: %w", name, err)
		}
		return gcp.NewProvisioner(client), cloudCtx, nil

	case "aws":
		client, err := aws.NewClient(ctx,
			aws.WithProfile(cloudCtx.Profile),
			aws.WithRegion(cloudCtx.Region),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize AWS client for context %q: %w", name, err)
		}
		return aws.NewProvisioner(client), cloudCtx, nil

	default:
		return nil, nil, fmt.Errorf("context %q has unsupported provider %q", name, cloudCtx.Provider)
	}
}
