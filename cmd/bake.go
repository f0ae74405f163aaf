package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/imagebuild"
	"github.com/tranqh91/nimbus/internal/ui"
)

var (
	bakeFile    string
	bakeName    string
	bakeTimeout time.Duration
)

var bakeCmd = &cobra.Command{
	Use:   "bake",
	Short: "Build a golden web-server image",
	Long: `Bake boots a temporary instance from the deployment's base family, lets
its provisioning script install the web server and power the machine off,
then snapshots the boot disk into a named image. The temporary instance is
deleted afterwards whether the build succeeded or not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeploymentFile(bakeFile)
		if err != nil {
			return err
		}

		imageName := bakeName
		if imageName == "" {
			imageName = fmt.Sprintf("%s-%s", dep.Name, time.Now().UTC().Format("20060102-150405"))
		}

		backend, _, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		builder := imagebuild.NewBuilder(backend)
		img, err := builder.Build(cmd.Context(), &imagebuild.BuildSpec{
			ImageName:   imageName,
			Family:      dep.Image.Family,
			BaseFamily:  dep.Bake.BaseFamily,
			BaseProject: dep.Bake.BaseProject,
			MachineType: dep.Bake.MachineType,
			Zone:        dep.Zone,
			Timeout:     bakeTimeout,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Image %s ready", ui.NameStyle.Render(img.Name))
		if img.Family != "" {
			fmt.Printf(" (family %s)", img.Family)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	bakeCmd.Flags().StringVarP(&bakeFile, "file", "f", "", "Deployment file")
	bakeCmd.Flags().StringVar(&bakeName, "name", "", "Image name (default <deployment>-<timestamp>)")
	bakeCmd.Flags().DurationVar(&bakeTimeout, "timeout", 0, "Build timeout (default 20m)")
	rootCmd.AddCommand(bakeCmd)
}
