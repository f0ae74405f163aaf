package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/ui"
)

var useCmd = &cobra.Command{
	Use:   "use <context>",
	Short: "Switch to a different context",
	Long: `Switch the current context. Context names follow the provider:name
convention, e.g. gcp:prod or aws:staging.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if err := config.SetCurrentContext(name); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cfg.Contexts[name]

		fmt.Printf("Switched to context %s\n", ui.NameStyle.Render(name))
		switch ctx.Provider {
		case "gcp":
			fmt.Printf("  %s project=%s zone=%s\n",
				ui.GCPStyle.Render("GCP"), ctx.Project, ctx.Zone)
		case "aws":
			fmt.Printf("  %s profile=%s region=%s\n",
				ui.AWSStyle.Render("AWS"), ctx.Profile, ctx.Region)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
