package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/config"
	"github.com/tranqh91/nimbus/internal/imagebuild"
	"github.com/tranqh91/nimbus/internal/provision"
	"github.com/tranqh91/nimbus/internal/ui"
)

var (
	releaseFile string
	releaseYes  bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Bake a fresh image and roll the fleet onto it",
	Long: `Release runs a full pipeline: bake a fresh golden image, then apply the
deployment pinned to that exact image. This is what CI runs on every push
to the main branch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeploymentFile(releaseFile)
		if err != nil {
			return err
		}

		backend, cloudCtx, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		if !releaseYes {
			prompt := fmt.Sprintf("Release deployment %s on %s? This bakes a new image and rolls the fleet.",
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

		imageName := fmt.Sprintf("%s-%s", dep.Name, time.Now().UTC().Format("20060102-150405"))

		builder := imagebuild.NewBuilder(backend)
		img, err := builder.Build(cmd.Context(), &imagebuild.BuildSpec{
			ImageName:   imageName,
			Family:      dep.Image.Family,
			BaseFamily:  dep.Bake.BaseFamily,
			BaseProject: dep.Bake.BaseProject,
			MachineType: dep.Bake.MachineType,
			Zone:        dep.Zone,
		})
		if err != nil {
			return fmt.Errorf("bake: %w", err)
		}

		// Pin the fleet to the image this release just produced
		dep.Image = config.ImageConfig{Name: img.Name}

		engine := provision.NewEngine(backend)
		outputs, err := engine.Apply(cmd.Context(), dep)
		if err != nil {
			return fmt.Errorf("apply: %w", err)
		}

		printOutputs(outputs)
		return nil
	},
}

func init() {
	releaseCmd.Flags().StringVarP(&releaseFile, "file", "f", "", "Deployment file")
	releaseCmd.Flags().BoolVarP(&releaseYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(releaseCmd)
}
