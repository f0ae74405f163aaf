package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	contextFlag string
	project     string
	zone        string
	region      string
)

var rootCmd = &cobra.Command{
	Use:   "nbs",
	Short: "Nimbus - bake golden images and provision web-server fleets",
	Long: `Nimbus is a command-line tool that builds golden web-server images and
provisions fixed-count VM fleets with their firewall rules on GCP and AWS.

Context-Aware Commands:
  nbs use gcp:prod           # Switch to the GCP production context
  nbs status                 # Show current context and auth status
  nbs contexts               # List all configured contexts

Provisioning Commands:
  nbs bake                   # Build a golden image
  nbs apply -f web.yaml      # Converge the fleet declared in web.yaml
  nbs destroy -f web.yaml    # Tear the fleet down again
  nbs release -f web.yaml    # Bake a fresh image, then apply with it

Inspection Commands:
  nbs fleet list             # List fleet instances
  nbs fleet get web-0        # Show instance details`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&contextFlag, "context", "c", "", "Use a specific context")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "Cloud project ID override")
	rootCmd.PersistentFlags().StringVarP(&zone, "zone", "z", "", "Zone override")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "Region override")

	// Bind flags to viper
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("zone", rootCmd.PersistentFlags().Lookup("zone"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
}

func initConfig() {
	// Read from environment variables (NBS_PROJECT, NBS_ZONE, ...)
	viper.SetEnvPrefix("NBS")
	viper.AutomaticEnv()

	if project == "" {
		project = viper.GetString("project")
	}
	if zone == "" {
		zone = viper.GetString("zone")
	}
	if region == "" {
		region = viper.GetString("region")
	}
}
