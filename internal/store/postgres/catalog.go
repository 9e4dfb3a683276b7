// Package postgres provides the Postgres-backed catalog implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/store"
)

// Config controls the connection pool behind the catalog.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the subset of the pgx pool the catalog uses; pgxmock
// implements it for tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Catalog implements harvest.Catalog on Postgres. Uniqueness is enforced
// by the schema (unique constraints on services.url, layers(name,
// service_url), layer_dates(layer natural key, date, type)) so repeated
// harvests stay idempotent even across processes.
type Catalog struct {
	pool querier
}

// NewCatalog connects a pool and returns the catalog.
func NewCatalog(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Catalog{pool: pool}, nil
}

// NewCatalogWithPool constructs a catalog from an existing pool
// (primarily for testing).
func NewCatalogWithPool(pool querier) (*Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Catalog{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (c *Catalog) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// CreateService inserts a service row, silently skipping URLs that
// already exist.
func (c *Catalog) CreateService(ctx context.Context, svc harvest.Service) (bool, error) {
	tag, err := c.pool.Exec(ctx, `
INSERT INTO services (url, type, title, abstract)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url) DO NOTHING`,
		svc.URL, string(svc.Type), svc.Title, svc.Abstract)
	if err != nil {
		return false, fmt.Errorf("insert service: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetService fetches a service row by URL.
func (c *Catalog) GetService(ctx context.Context, url string) (harvest.Service, error) {
	var svc harvest.Service
	var typ string
	err := c.pool.QueryRow(ctx, `
SELECT url, type, title, abstract FROM services WHERE url = $1`, url).
		Scan(&svc.URL, &typ, &svc.Title, &svc.Abstract)
	if errors.Is(err, pgx.ErrNoRows) {
		return harvest.Service{}, store.ErrNotFound
	}
	if err != nil {
		return harvest.Service{}, fmt.Errorf("select service: %w", err)
	}
	svc.Type = harvest.ServiceType(typ)
	return svc, nil
}

// GetOrCreateLayer upserts the (name, service_url) row and returns its
// current state plus whether it was created by this call.
func (c *Catalog) GetOrCreateLayer(ctx context.Context, name, serviceURL string) (harvest.Layer, bool, error) {
	layer := harvest.Layer{Name: name, ServiceURL: serviceURL}
	var created bool
	err := c.pool.QueryRow(ctx, `
INSERT INTO layers (name, service_url, is_public, active)
VALUES ($1, $2, TRUE, TRUE)
ON CONFLICT (name, service_url) DO UPDATE SET name = EXCLUDED.name
RETURNING type, title, abstract, url, page_url,
          bbox_x0, bbox_y0, bbox_x1, bbox_y1,
          wkt_geometry, anytext, xml, is_public, active,
          (xmax = 0) AS created`,
		name, serviceURL).
		Scan(&layer.Type, &layer.Title, &layer.Abstract, &layer.URL, &layer.PageURL,
			&layer.BBox.X0, &layer.BBox.Y0, &layer.BBox.X1, &layer.BBox.Y1,
			&layer.WKTGeometry, &layer.AnyText, &layer.XML, &layer.IsPublic, &layer.Active,
			&created)
	if err != nil {
		return harvest.Layer{}, false, fmt.Errorf("upsert layer: %w", err)
	}
	return layer, created, nil
}

// UpdateLayer persists the mutated fields of an existing layer.
func (c *Catalog) UpdateLayer(ctx context.Context, layer harvest.Layer) error {
	tag, err := c.pool.Exec(ctx, `
UPDATE layers SET
	type = $3, title = $4, abstract = $5, url = $6, page_url = $7,
	bbox_x0 = $8, bbox_y0 = $9, bbox_x1 = $10, bbox_y1 = $11,
	wkt_geometry = $12, anytext = $13, xml = $14, is_public = $15
WHERE name = $1 AND service_url = $2`,
		layer.Name, layer.ServiceURL,
		layer.Type, layer.Title, layer.Abstract, layer.URL, layer.PageURL,
		layer.BBox.X0, layer.BBox.Y0, layer.BBox.X1, layer.BBox.Y1,
		layer.WKTGeometry, layer.AnyText, layer.XML, layer.IsPublic)
	if err != nil {
		return fmt.Errorf("update layer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddKeyword associates a tag with a layer, ignoring duplicates.
func (c *Catalog) AddKeyword(ctx context.Context, name, serviceURL, keyword string) error {
	if _, err := c.pool.Exec(ctx, `
INSERT INTO layer_keywords (layer_name, service_url, keyword)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`, name, serviceURL, keyword); err != nil {
		return fmt.Errorf("insert keyword: %w", err)
	}
	return nil
}

// EnsureSRS lazily creates the SRS row and associates it with the layer.
func (c *Catalog) EnsureSRS(ctx context.Context, name, serviceURL string, code int) error {
	if _, err := c.pool.Exec(ctx, `
INSERT INTO spatial_reference_systems (code)
VALUES ($1)
ON CONFLICT (code) DO NOTHING`, code); err != nil {
		return fmt.Errorf("insert srs: %w", err)
	}
	if _, err := c.pool.Exec(ctx, `
INSERT INTO layer_srs (layer_name, service_url, srs_code)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`, name, serviceURL, code); err != nil {
		return fmt.Errorf("associate srs: %w", err)
	}
	return nil
}

// AddLayerDate upserts one (layer, date, type) row.
func (c *Catalog) AddLayerDate(ctx context.Context, name, serviceURL, date string, dateType int) error {
	if _, err := c.pool.Exec(ctx, `
INSERT INTO layer_dates (layer_name, service_url, date, type)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`, name, serviceURL, date, dateType); err != nil {
		return fmt.Errorf("insert layer date: %w", err)
	}
	return nil
}

// UpsertLayerWM stores the WorldMap side-table fields for a layer.
func (c *Catalog) UpsertLayerWM(ctx context.Context, name, serviceURL string, wm harvest.LayerWM) error {
	if _, err := c.pool.Exec(ctx, `
INSERT INTO layers_wm (layer_name, service_url, category, username, temporal_extent_start, temporal_extent_end)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (layer_name, service_url) DO UPDATE SET
	category = EXCLUDED.category,
	username = EXCLUDED.username,
	temporal_extent_start = EXCLUDED.temporal_extent_start,
	temporal_extent_end = EXCLUDED.temporal_extent_end`,
		name, serviceURL, wm.Category, wm.Username, wm.TemporalExtentStart, wm.TemporalExtentEnd); err != nil {
		return fmt.Errorf("upsert layer_wm: %w", err)
	}
	return nil
}
