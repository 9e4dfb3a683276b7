package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDetectCmd creates the 'detect' subcommand: probe one endpoint and
// register whatever services answer.
func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <endpoint-url>",
		Short: "Probe an endpoint and register the detected services",
		Long: `Runs the ordered protocol probe battery (WMS, TMS, WMTS, then the
ESRI REST directory walk) against the endpoint and registers every
detected service in the catalog.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			detected, message := a.detector.Detect(cmd.Context(), args[0])
			a.logger.Info("detection finished",
				zap.String("endpoint", args[0]),
				zap.Bool("detected", detected),
				zap.String("message", message))
			fmt.Fprintln(cmd.OutOrStdout(), message)
			if !detected {
				return fmt.Errorf("detection failed: %s", message)
			}
			return nil
		},
	}
}
