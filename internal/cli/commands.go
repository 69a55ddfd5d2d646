package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/diagnostics"
)

func newRunCmd(o *options) *cobra.Command {
	var (
		required []string
		tail     int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full diagnostic sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := o.api()
			if err != nil {
				return err
			}
			res, err := diagnostics.Run(cmd.Context(), api, cmd.OutOrStdout(), diagnostics.RunOptions{
				LogLimit:    o.logLimit,
				TailLines:   tail,
				RequiredEnv: required,
			})
			if err != nil {
				return err
			}
			for _, e := range res.Errors {
				o.log.Warn("diagnostic step failed", zap.Error(e))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\ndiagnostic sequence complete")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&required, "require", nil, "Env vars every service must define (comma separated)")
	cmd.Flags().IntVar(&tail, "tail", 50, "Log lines printed per failed service")
	return cmd
}

func newServicesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List services grouped by health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := o.api()
			if err != nil {
				return err
			}
			services, err := api.ListServices(cmd.Context())
			if err != nil {
				return err
			}
			diagnostics.PrintServices(cmd.OutOrStdout(), services)
			return nil
		},
	}
}

func newLogsCmd(o *options) *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "logs <service-id>",
		Short: "Fetch a service's logs and scan them for known failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := o.api()
			if err != nil {
				return err
			}
			entries, err := api.Logs(cmd.Context(), args[0], o.logLimit)
			if err != nil {
				return err
			}
			diagnostics.PrintLogs(cmd.OutOrStdout(), args[0], entries, tail)
			return nil
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 50, "Log lines to print")
	return cmd
}

func newEnvCmd(o *options) *cobra.Command {
	var required []string
	cmd := &cobra.Command{
		Use:   "env <service-id>",
		Short: "Check that a service defines the required env vars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(required) == 0 {
				return fmt.Errorf("--require is empty")
			}
			api, err := o.api()
			if err != nil {
				return err
			}
			svc := diagnostics.Service{ID: args[0], Name: args[0]}
			missing, err := diagnostics.CheckEnv(cmd.Context(), api, cmd.OutOrStdout(), svc, required)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d required variables missing", len(missing))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&required, "require", nil, "Env vars the service must define (comma separated)")
	return cmd
}

func newAnalyzeCmd(_ *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <snapshot.json>",
		Short: "Pretty-print a saved platform snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			snap, err := diagnostics.LoadSnapshot(f)
			if err != nil {
				return err
			}
			diagnostics.PrintSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}
