package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/config"
	"github.com/geoharbor/mapharvest/internal/esri"
	"github.com/geoharbor/mapharvest/internal/fetch"
	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/logging"
	"github.com/geoharbor/mapharvest/internal/metadata"
	"github.com/geoharbor/mapharvest/internal/mined"
	"github.com/geoharbor/mapharvest/internal/ogc"
	"github.com/geoharbor/mapharvest/internal/store/memory"
	"github.com/geoharbor/mapharvest/internal/store/postgres"
)

var cfgFile string

// app holds the long-lived services every subcommand needs.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   harvest.Catalog
	detector  *harvest.Detector
	harvester *harvest.Harvester
	closeFn   func()
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
	}
	_ = a.logger.Sync()
}

// newApp wires config, logging, storage and the protocol clients. When no
// database DSN is configured it falls back to the in-memory catalog, which
// is enough for one-shot detect runs against a live endpoint.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	var catalog harvest.Catalog
	closeFn := func() {}
	if cfg.DB.DSN != "" {
		pg, err := postgres.NewCatalog(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxConns),
			MinConns: int32(cfg.DB.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("connect catalog database: %w", err)
		}
		catalog = pg
		closeFn = pg.Close
		logger.Info("using postgres catalog")
	} else {
		catalog = memory.NewCatalog()
		logger.Warn("no db.dsn configured, using in-memory catalog")
	}

	detectTimeout := cfg.DetectTimeout()
	harvestTimeout := cfg.HarvestTimeout()

	fetcher := fetch.New(harvestTimeout, logger)
	wms := ogc.NewWMSClient(detectTimeout, logger)
	tms := ogc.NewTMSClient(detectTimeout, logger)
	wmts := ogc.NewWMTSClient(detectTimeout, logger)
	esriClient := esri.NewClient(harvestTimeout, logger)

	detector := harvest.NewDetector(catalog, fetcher, wms, tms, wmts, esriClient,
		detectTimeout, logger)
	harvester := harvest.NewHarvester(catalog, wms, wmts, esriClient, fetcher,
		mined.New(), metadata.NewBuilder(), harvest.Config{
			SiteURL:              cfg.Site.URL,
			WorldMapAPIURL:       cfg.WorldMap.APIURL,
			WorldMapGeoserverURL: cfg.WorldMap.GeoserverURL,
			CRSLookupURL:         cfg.CRS.LookupURL,
			PageSize:             cfg.Harvest.PageSize,
		}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		catalog:   catalog,
		detector:  detector,
		harvester: harvester,
		closeFn:   closeFn,
	}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapharvest",
		Short: "Detect and harvest remote map services into a layer catalog.",
		Long: `mapharvest registers remote map service endpoints (OGC WMS/WMTS,
OSGeo TMS, ESRI REST, WorldMap and Warper catalogs), enumerates their
layers and stores normalized layer records with spatial footprints,
keyword tags and temporal metadata.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
