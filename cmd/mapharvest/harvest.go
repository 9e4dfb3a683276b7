package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/harvest"
)

// newHarvestCmd creates the 'harvest' subcommand: sync the layers of one
// registered service.
func newHarvestCmd() *cobra.Command {
	var serviceType string

	cmd := &cobra.Command{
		Use:   "harvest <service-url>",
		Short: "Harvest the layers of a registered service",
		Long: `Enumerates the layers of the service registered at the given URL and
upserts the normalized records. With --type the service does not need to
be registered first; it is harvested as the given protocol directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var svc harvest.Service
			if serviceType != "" {
				svc = harvest.Service{URL: args[0], Type: harvest.ServiceType(serviceType)}
			} else {
				svc, err = a.catalog.GetService(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("service %s not registered, run detect first or pass --type: %w", args[0], err)
				}
			}

			if err := a.harvester.Harvest(cmd.Context(), svc); err != nil {
				return fmt.Errorf("harvest %s: %w", svc.URL, err)
			}
			a.logger.Info("harvest finished",
				zap.String("url", svc.URL), zap.String("type", string(svc.Type)))
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceType, "type", "",
		"service type (OGC:WMS, OGC:WMTS, WorldMap, Warper, ESRI:ArcGIS:MapServer, ESRI:ArcGIS:ImageServer)")
	return cmd
}
