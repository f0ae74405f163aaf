package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/aws"
	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/gcp"
	"github.com/tranqh91/nimbus/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current context and authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cloudCtx, name, err := config.GetCurrentContext()
		if err != nil {
			return err
		}
		if cloudCtx == nil {
			fmt.Println("No context selected.")
			fmt.Println(ui.HintStyle.Render("  nbs use <context>"))
			return nil
		}

		fmt.Printf("Context:  %s\n", ui.NameStyle.Render(name))

		switch cloudCtx.Provider {
		case "gcp":
			fmt.Printf("Provider: %s\n", ui.GCPStyle.Render("GCP"))
			fmt.Printf("Project:  %s\n", cloudCtx.Project)
			fmt.Printf("Zone:     %s\n", cloudCtx.Zone)

			identity, err := gcp.GetCallerIdentity(cmd.Context(), cloudCtx.Project)
			if err != nil {
				fmt.Printf("Auth:     %s (%v)\n", ui.PendingStyle.Render("not authenticated"), err)
				return nil
			}
			fmt.Printf("Auth:     %s\n", ui.RunningStyle.Render("authenticated"))
			if identity.Email != "" {
				fmt.Printf("Account:  %s\n", identity.Email)
			}

		case "aws":
			fmt.Printf("Provider: %s\n", ui.AWSStyle.Render("AWS"))
			fmt.Printf("Profile:  %s\n", cloudCtx.Profile)
			fmt.Printf("Region:   %s\n", cloudCtx.Region)

			identity, err := aws.GetCallerIdentity(cmd.Context(), cloudCtx.Profile, cloudCtx.Region)
			if err != nil {
				fmt.Printf("Auth:     %s (%v)\n", ui.PendingStyle.Render("not authenticated"), err)
				return nil
			}
			fmt.Printf("Auth:     %s\n", ui.RunningStyle.Render("authenticated"))
			fmt.Printf("Account:  %s\n", identity.Account)
			fmt.Printf("Arn:      %s\n", identity.Arn)

		default:
			return fmt.Errorf("context %q has unsupported provider %q", name, cloudCtx.Provider)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
