package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/provision"
	"github.com/tranqh91/nimbus/internal/ui"
	"github.com/tranqh91/nimbus/pkg/types"
)

var (
	applyFile  string
	applyImage string
	applyYes   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge a fleet to its declared state",
	Long: `Apply reads a deployment file and converges the fleet: firewall rules are
ensured, missing instances created, surplus instances deleted. Re-applying
an unchanged deployment is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeploymentFile(applyFile)
		if err != nil {
			return err
		}
		if applyImage != "" {
			dep.Image = config.ImageConfig{Name: applyImage}
		}

		backend, cloudCtx, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		if !applyYes {
			prompt := fmt.Sprintf("Apply deployment %s (%d instances) on %s?",
				ui.NameStyle.Render(dep.Name), dep.Count, cloudCtx.Provider)
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
		outputs, err := engine.Apply(cmd.Context(), dep)
		if err != nil {
			return err
		}

		printOutputs(outputs)
		return nil
	},
}

// loadDeploymentFile loads the given deployment file, falling back to the
// default from ~/.nimbus.yaml when no path is given.
func loadDeploymentFile(path string) (*config.Deployment, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if cfg.Defaults != nil {
			path = cfg.Defaults.Deployment
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no deployment file: pass -f <file> or set defaults.deployment in %s", config.ConfigPath())
	}
	return config.LoadDeployment(path)
}

func printOutputs(out *types.Outputs) {
	if out.NoOp() {
		fmt.Printf("\nDeployment %s unchanged (%d instances)\n",
			ui.NameStyle.Render(out.Deployment), out.Unchanged)
	} else {
		fmt.Printf("\nDeployment %s converged: %d created, %d deleted, %d unchanged\n",
			ui.NameStyle.Render(out.Deployment), out.Created, out.Deleted, out.Unchanged)
	}
	fmt.Printf("Image: %s (%s)\n", out.Image, out.ImageSelection)

	if len(out.ExternalIPs) == 0 {
		return
	}
	fmt.Println("External IPs:")
	for _, ip := range out.ExternalIPs {
		fmt.Printf("  %s\n", ui.IPStyle.Render(ip))
	}
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "Deployment file")
	applyCmd.Flags().StringVar(&applyImage, "image", "", "Override the deployment's image with an explicit name")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(applyCmd)
}
