package harvest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/esri"
	"github.com/geoharbor/mapharvest/internal/metrics"
)

// ServiceDescriptor is the result of one successful protocol probe.
type ServiceDescriptor struct {
	Type     ServiceType
	Title    string
	Abstract string
}

// probe is one entry of the ordered battery: it either recognizes the
// endpoint and returns a descriptor, or reports an error meaning "not this
// protocol".
type probe struct {
	serviceType ServiceType
	run         func(ctx context.Context, endpoint string) (*ServiceDescriptor, error)
}

// Detector determines which protocol an endpoint speaks by folding an
// ordered list of probes, first match wins. Matching registers one or more
// services in the catalog as a side effect.
type Detector struct {
	catalog Catalog
	fetch   Fetcher
	esri    EsriClient
	probes  []probe
	timeout time.Duration
	logger  *zap.Logger
}

// NewDetector wires the probe battery in its fixed order: WMS, TMS, WMTS,
// then ESRI. The ordering is pragmatic (WMS is by far the most common),
// not a correctness guarantee for endpoints answering several probes.
func NewDetector(
	catalog Catalog,
	fetch Fetcher,
	wms CapabilitiesClient,
	tms CapabilitiesClient,
	wmts CapabilitiesClient,
	esri EsriClient,
	timeout time.Duration,
	logger *zap.Logger,
) *Detector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Detector{
		catalog: catalog,
		fetch:   fetch,
		esri:    esri,
		timeout: timeout,
		logger:  logger,
	}
	d.probes = []probe{
		{serviceType: TypeWMS, run: capabilitiesProbe(TypeWMS, wms)},
		{serviceType: TypeTMS, run: capabilitiesProbe(TypeTMS, tms)},
		{serviceType: TypeWMTS, run: capabilitiesProbe(TypeWMTS, wmts)},
	}
	return d
}

func capabilitiesProbe(t ServiceType, client CapabilitiesClient) func(context.Context, string) (*ServiceDescriptor, error) {
	return func(ctx context.Context, endpoint string) (*ServiceDescriptor, error) {
		if client == nil {
			return nil, fmt.Errorf("no %s client configured", t)
		}
		caps, err := client.GetCapabilities(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return &ServiceDescriptor{Type: t, Title: caps.Title, Abstract: caps.Abstract}, nil
	}
}

// Detect probes the endpoint and registers the matching services. It never
// returns an error: the outcome is the (detected, message) pair, with all
// per-probe failures absorbed and logged.
func (d *Detector) Detect(ctx context.Context, rawURL string) (bool, string) {
	endpoint := SanitizeEndpoint(rawURL)

	if err := d.checkLiveness(ctx, endpoint); err != nil {
		d.logger.Error("endpoint unreachable", zap.String("endpoint", endpoint), zap.Error(err))
		return false, fmt.Sprintf("cannot open endpoint %s: %v", endpoint, err)
	}

	numCreated := 0
	detected := false

	for _, p := range d.probes {
		probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
		desc, err := p.run(probeCtx, endpoint)
		cancel()
		if err != nil {
			d.logger.Debug("probe missed",
				zap.String("protocol", string(p.serviceType)),
				zap.String("endpoint", endpoint),
				zap.Error(err))
			metrics.ProbeResult(string(p.serviceType), false)
			continue
		}
		metrics.ProbeResult(string(p.serviceType), true)
		detected = true
		created, err := d.registerService(ctx, Service{
			URL:      endpoint,
			Type:     desc.Type,
			Title:    desc.Title,
			Abstract: desc.Abstract,
		})
		if err != nil {
			d.logger.Warn("service registration failed",
				zap.String("endpoint", endpoint), zap.Error(err))
		} else if created {
			numCreated++
		}
		break
	}

	// Only URLs under /rest/services are worth an ESRI directory attempt:
	// opening arbitrary endpoints as a folder can hang on non-ESRI servers.
	if !detected && strings.Contains(endpoint, esriRoot) {
		created, errs, err := d.walkEsriDirectory(ctx, endpoint)
		if err != nil {
			d.logger.Warn("esri directory open failed",
				zap.String("endpoint", endpoint), zap.Error(err))
			metrics.ProbeResult("ESRI", false)
		} else {
			metrics.ProbeResult("ESRI", true)
			detected = true
			numCreated += created
			for _, werr := range errs {
				d.logger.Warn("esri walk item failed", zap.Error(werr))
			}
		}
	}

	if !detected {
		return false, fmt.Sprintf("could not detect service type for endpoint %s", endpoint)
	}
	return true, fmt.Sprintf("%d service/s created", numCreated)
}

// checkLiveness issues the bounded connect that gates the whole battery.
func (d *Detector) checkLiveness(ctx context.Context, endpoint string) error {
	liveCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, status, err := d.fetch.Get(liveCtx, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("endpoint returned status %d", status)
	}
	return nil
}

// registerService verifies the endpoint answers and creates the service
// row. An already-registered URL is a silent no-op.
func (d *Detector) registerService(ctx context.Context, svc Service) (bool, error) {
	created, err := d.catalog.CreateService(ctx, svc)
	if err != nil {
		return false, fmt.Errorf("create service: %w", err)
	}
	if created {
		d.logger.Info("created service",
			zap.String("url", svc.URL), zap.String("type", string(svc.Type)))
		metrics.ServiceCreated(string(svc.Type))
	} else {
		d.logger.Info("service already registered", zap.String("url", svc.URL))
	}
	return created, nil
}

// walkEsriDirectory enumerates an ESRI service directory: the root's
// services, then every first-level folder. Deeper nesting is not
// traversed. Per-folder and per-leaf failures are collected and returned
// so callers can log them without aborting the walk; only a root open
// failure is reported as err.
func (d *Detector) walkEsriDirectory(ctx context.Context, root string) (int, []error, error) {
	dirCtx, cancel := context.WithTimeout(ctx, d.timeout)
	dir, err := d.esri.Directory(dirCtx, root)
	cancel()
	if err != nil {
		return 0, nil, err
	}

	var errs []error
	created := d.registerEsriLeaves(ctx, root, dir.Services, &errs)

	for _, folder := range dir.Folders {
		folderCtx, cancel := context.WithTimeout(ctx, d.timeout)
		sub, err := d.esri.Directory(folderCtx, root+"/"+folder)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("folder %s: %w", folder, err))
			continue
		}
		created += d.registerEsriLeaves(ctx, root, sub.Services, &errs)
	}
	return created, errs, nil
}

// registerEsriLeaves registers MapServer and ImageServer leaves from one
// directory listing. ImageServer leaves register unconditionally;
// MapServer leaves only when the remote descriptor lists at least one
// layer, which filters out provisioning placeholders.
func (d *Detector) registerEsriLeaves(ctx context.Context, root string, services []esri.ServiceEntry, errs *[]error) int {
	created := 0
	for _, entry := range services {
		leafURL := entry.LeafURL(root)
		switch {
		case strings.Contains(leafURL, "/ImageServer/"):
			leafCtx, cancel := context.WithTimeout(ctx, d.timeout)
			desc, err := d.esri.ImageServer(leafCtx, leafURL)
			cancel()
			if err != nil {
				*errs = append(*errs, fmt.Errorf("image server %s: %w", leafURL, err))
				continue
			}
			ok, err := d.registerService(ctx, Service{
				URL:      leafURL,
				Type:     TypeEsriImageServer,
				Abstract: desc.ServiceDescription,
			})
			if err != nil {
				*errs = append(*errs, err)
				continue
			}
			if ok {
				created++
			}
		case strings.Contains(leafURL, "/MapServer/"):
			leafCtx, cancel := context.WithTimeout(ctx, d.timeout)
			desc, err := d.esri.MapServer(leafCtx, leafURL)
			cancel()
			if err != nil {
				*errs = append(*errs, fmt.Errorf("map server %s: %w", leafURL, err))
				continue
			}
			if len(desc.Layers) == 0 {
				d.logger.Debug("skipping map server without layers", zap.String("url", leafURL))
				continue
			}
			ok, err := d.registerService(ctx, Service{
				URL:      leafURL,
				Type:     TypeEsriMapServer,
				Title:    desc.MapName,
				Abstract: desc.Description,
			})
			if err != nil {
				*errs = append(*errs, err)
				continue
			}
			if ok {
				created++
			}
		}
	}
	return created
}
