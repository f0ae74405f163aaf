package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/ui"
)

var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		contexts, current, err := config.ListContexts()
		if err != nil {
			return err
		}

		if len(contexts) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println(ui.HintStyle.Render("  nbs contexts add gcp:prod --provider gcp --project my-project --zone us-central1-a"))
			return nil
		}

		names := make([]string, 0, len(contexts))
		for name := range contexts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx := contexts[name]

			marker := "  "
			if name == current {
				marker = ui.RunningStyle.Render("* ")
			}

			var detail string
			switch ctx.Provider {
			case "gcp":
				detail = fmt.Sprintf("%s project=%s zone=%s",
					ui.GCPStyle.Render("gcp"), ctx.Project, ctx.Zone)
			case "aws":
				detail = fmt.Sprintf("%s profile=%s region=%s",
					ui.AWSStyle.Render("aws"), ctx.Profile, ctx.Region)
			default:
				detail = ctx.Provider
			}

			fmt.Printf("%s%-24s %s\n", marker, name, detail)
		}
		return nil
	},
}

var contextsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		providerFlag, _ := cmd.Flags().GetString("provider")
		if providerFlag == "" {
			// Infer from the provider:name convention
			providerFlag, _ = config.ParseContextName(name)
		}
		if providerFlag != "gcp" && providerFlag != "aws" {
			return fmt.Errorf("provider must be gcp or aws (got %q)", providerFlag)
		}

		ctxProject, _ := cmd.Flags().GetString("project")
		ctxProfile, _ := cmd.Flags().GetString("profile")
		ctxRegion, _ := cmd.Flags().GetString("region")
		ctxZone, _ := cmd.Flags().GetString("zone")

		if err := config.AddContext(name, &config.Context{
			Provider: providerFlag,
			Project:  ctxProject,
			Profile:  ctxProfile,
			Region:   ctxRegion,
			Zone:     ctxZone,
		}); err != nil {
			return err
		}

		fmt.Printf("Context %s saved to %s\n", ui.NameStyle.Render(name), config.ConfigPath())
		return nil
	},
}

var contextsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %s deleted\n", args[0])
		return nil
	},
}

func init() {
	contextsAddCmd.Flags().String("provider", "", "Cloud provider (gcp or aws)")
	contextsAddCmd.Flags().String("project", "", "GCP project ID")
	contextsAddCmd.Flags().String("profile", "", "AWS profile name")
	contextsAddCmd.Flags().String("region", "", "Region")
	contextsAddCmd.Flags().String("zone", "", "Default zone")

	contextsCmd.AddCommand(contextsAddCmd)
	contextsCmd.AddCommand(contextsDeleteCmd)
	rootCmd.AddCommand(contextsCmd)
}
