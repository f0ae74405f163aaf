package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/provision"
	"github.com/tranqh91/nimbus/internal/ui"
)

var (
	destroyFile string
	destroyYes  bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down a fleet and its firewall rules",
	Long: `Destroy deletes every instance owned by the deployment, then removes its
firewall rules. Destroying an already-destroyed deployment is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeploymentFile(destroyFile)
		if err != nil {
			return err
		}

		backend, cloudCtx, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		if !destroyYes {
			prompt := fmt.Sprintf("Destroy deployment %s on %s? This deletes its instances and firewall rules.",
				ui.NameStyle.Render(dep.Name), cloudCtx.Provider)
			ok, err := ui.Confirm(prompt)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		engine := provision.NewEngine(backend)
		if err := engine.Destroy(cmd.Context(), dep); err != nil {
			return err
		}

		fmt.Printf("Deployment %s destroyed\n", ui.NameStyle.Render(dep.Name))
		return nil
	},
}

func init() {
	destroyCmd.Flags().StringVarP(&destroyFile, "file", "f", "", "Deployment file")
	destroyCmd.Flags().BoolVarP(&destroyYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(destroyCmd)
}
