package main

import (
	"github.com/horockey/devreg"
	"github.com/horockey/devreg/internal/controller/http_controller/dto"
	"github.com/spf13/cobra"
)

// deviceCmd builds one-shot command running against freshly initialized registry.
func deviceCmd(
	use string,
	short string,
	args cobra.PositionalArgs,
	run func(cmd *cobra.Command, a *app, args []string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.reg.Initialize(cmd.Context()); err != nil {
				return err
			}

			return run(cmd, a, args)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		deviceCmd(
			"list",
			"Refresh and print all known devices",
			cobra.NoArgs,
			func(cmd *cobra.Command, a *app, _ []string) error {
				return printJSON(cmd, dto.NewDevices(a.reg.Devices()))
			},
		),
		deviceCmd(
			"get <address>",
			"Refresh known devices and print one of them",
			cobra.ExactArgs(1),
			func(cmd *cobra.Command, a *app, args []string) error {
				rec, found := a.reg.GetDevice(args[0])
				if !found {
					return devreg.DeviceNotFoundError{Address: args[0]}
				}
				return printJSON(cmd, dto.NewDevice(rec))
			},
		),
		deviceCmd(
			"add <address>",
			"Probe address and add it to registry",
			cobra.ExactArgs(1),
			func(cmd *cobra.Command, a *app, args []string) error {
				rec, err := a.reg.AddDevice(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, dto.NewDevice(rec))
			},
		),
		deviceCmd(
			"discover <address>...",
			"Probe addresses in bulk and add them to registry",
			cobra.MinimumNArgs(1),
			func(cmd *cobra.Command, a *app, args []string) error {
				batch := a.reg.FetchDevices(cmd.Context(), args)
				return printJSON(cmd, dto.DiscoverResponse{
					Detected: a.reg.NumberOfDetectedDevices(),
					Devices:  dto.NewDevices(batch.Records),
				})
			},
		),
		deviceCmd(
			"reconnect",
			"Re-probe all known devices",
			cobra.NoArgs,
			func(cmd *cobra.Command, a *app, _ []string) error {
				batch := a.reg.ReconnectDevice(cmd.Context())
				return printJSON(cmd, dto.NewDevices(batch.Records))
			},
		),
		deviceCmd(
			"delete <address>",
			"Remove device from registry",
			cobra.ExactArgs(1),
			func(cmd *cobra.Command, a *app, args []string) error {
				if !a.reg.DeleteDevice(args[0]) {
					a.logger.Warn().Str("address", args[0]).Msg("device was not known")
				}
				return nil
			},
		),
	)
}
