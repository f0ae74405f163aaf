package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranqh91/nimbus/internal/ui"
	"github.com/tranqh91/nimbus/pkg/provider"
	"github.com/tranqh91/nimbus/pkg/types"
)

var (
	fleetDeployment string
	fleetState      string
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Inspect and control fleet instances",
}

var fleetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fleet instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		instances, err := backend.ListInstances(cmd.Context(), &provider.FleetFilter{
			Deployment: fleetDeployment,
			State:      fleetState,
		})
		if err != nil {
			return err
		}

		if len(instances) == 0 {
			fmt.Println("No instances found.")
			return nil
		}

		ui.PrintFleetTable(instances)
		return nil
	},
}

var fleetGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Show one instance in detail",
	Long: `Show details for a single instance. With no name argument an interactive
picker is shown over the fleet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		inst, err := pickInstance(cmd, backend, args)
		if err != nil {
			return err
		}

		fmt.Printf("Name:        %s\n", ui.NameStyle.Render(inst.Name))
		fmt.Printf("ID:          %s\n", inst.ID)
		fmt.Printf("State:       %s\n", ui.FormatState(string(inst.State)))
		fmt.Printf("Type:        %s\n", inst.Type)
		fmt.Printf("Zone:        %s\n", inst.Zone)
		fmt.Printf("External IP: %s\n", inst.PublicIP)
		fmt.Printf("Internal IP: %s\n", inst.PrivateIP)
		if inst.Deployment != "" {
			fmt.Printf("Deployment:  %s\n", inst.Deployment)
		}
		if !inst.LaunchedAt.IsZero() {
			fmt.Printf("Launched:    %s\n", inst.LaunchedAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

var fleetStartCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Start a stopped instance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		inst, err := pickInstance(cmd, backend, args)
		if err != nil {
			return err
		}
		if inst.IsRunning() {
			fmt.Printf("Instance %s is already running\n", inst.Name)
			return nil
		}

		if err := backend.StartInstance(cmd.Context(), inst.Name); err != nil {
			return err
		}
		fmt.Printf("Instance %s started\n", ui.NameStyle.Render(inst.Name))
		return nil
	},
}

var fleetStopCmd = &cobra.Command{
	Use:   "stop [name]",
	Short: "Stop a running instance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _, err := getBackend(cmd.Context())
		if err != nil {
			return err
		}

		inst, err := pickInstance(cmd, backend, args)
		if err != nil {
			return err
		}
		if inst.IsStopped() {
			fmt.Printf("Instance %s is already stopped\n", inst.Name)
			return nil
		}

		if err := backend.StopInstance(cmd.Context(), inst.Name); err != nil {
			return err
		}
		fmt.Printf("Instance %s stopping\n", ui.NameStyle.Render(inst.Name))
		return nil
	},
}

// pickInstance resolves the target instance: by name when given, otherwise
// through the interactive selector.
func pickInstance(cmd *cobra.Command, backend provider.Provisioner, args []string) (*types.Instance, error) {
	filter := &provider.FleetFilter{
		Deployment: fleetDeployment,
		State:      fleetState,
	}
	if len(args) == 1 {
		filter.Name = args[0]
	}

	instances, err := backend.ListInstances(cmd.Context(), filter)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		if len(args) == 1 {
			return nil, fmt.Errorf("instance %q: %w", args[0], provider.ErrNotFound)
		}
		return nil, errors.New("no instances found")
	}
	if len(instances) == 1 {
		return &instances[0], nil
	}

	return ui.SelectInstance(instances)
}

func init() {
	fleetCmd.PersistentFlags().StringVarP(&fleetDeployment, "deployment", "d", "", "Filter by deployment name")
	fleetCmd.PersistentFlags().StringVarP(&fleetState, "state", "s", "all", "Filter by state (running, stopped, all)")

	fleetCmd.AddCommand(fleetListCmd)
	fleetCmd.AddCommand(fleetGetCmd)
	fleetCmd.AddCommand(fleetStartCmd)
	fleetCmd.AddCommand(fleetStopCmd)
	rootCmd.AddCommand(fleetCmd)
}
