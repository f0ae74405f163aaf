package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/ui"
	"github.com/tranqh91/nimbus/pkg/provider"
)

var imagesYes bool

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage golden images",
}

var imagesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a golden image",
	Long: `Delete an image by name (AMI ID on AWS). Timestamped images pile up over
repeated releases; this removes the stale ones. Deleting an image that is
already gone is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		backend, cloudCtx, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		deleter, ok := backend.(provider.ImageDeleter)
		if !ok {
			return fmt.Errorf("provider %s: %w", cloudCtx.Provider, provider.ErrNotSupported)
		}

		if !imagesYes {
			ok, err := ui.Confirm(fmt.Sprintf("Delete image %s?", ui.NameStyle.Render(name)))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := deleter.DeleteImage(cmd.Context(), name); err != nil {
			return err
		}

		fmt.Printf("Image %s deleted\n", name)
		return nil
	},
}

func init() {
	imagesDeleteCmd.Flags().BoolVarP(&imagesYes, "yes", "y", false, "Skip the confirmation prompt")
	imagesCmd.AddCommand(imagesDeleteCmd)
	rootCmd.AddCommand(imagesCmd)
}
