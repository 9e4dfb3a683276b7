package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/store"
)

func newMockCatalog(t *testing.T) (*Catalog, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	cat, err := NewCatalogWithPool(mock)
	require.NoError(t, err)
	return cat, mock
}

func TestCreateServiceInsertsOnce(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("INSERT INTO services").
		WithArgs("http://h/wms", "OGC:WMS", "Test", "Abs").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := cat.CreateService(context.Background(), harvest.Service{
		URL: "http://h/wms", Type: harvest.TypeWMS, Title: "Test", Abstract: "Abs",
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateServiceDuplicateIsNoOp(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("INSERT INTO services").
		WithArgs("http://h/wms", "OGC:WMS", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := cat.CreateService(context.Background(), harvest.Service{
		URL: "http://h/wms", Type: harvest.TypeWMS,
	})
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetServiceNotFound(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectQuery("SELECT url, type, title, abstract FROM services").
		WithArgs("http://missing").
		WillReturnRows(pgxmock.NewRows([]string{"url", "type", "title", "abstract"}))

	_, err := cat.GetService(context.Background(), "http://missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateLayerReturnsState(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	cols := []string{
		"type", "title", "abstract", "url", "page_url",
		"bbox_x0", "bbox_y0", "bbox_x1", "bbox_y1",
		"wkt_geometry", "anytext", "xml", "is_public", "active", "created",
	}
	mock.ExpectQuery("INSERT INTO layers").
		WithArgs("roads", "http://h/wms").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"OGC:WMS", "Roads", "", "http://h/wms", "",
			-10.0, -5.0, 10.0, 5.0,
			"", "", "", true, false, false,
		))

	layer, created, err := cat.GetOrCreateLayer(context.Background(), "roads", "http://h/wms")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "roads", layer.Name)
	assert.Equal(t, "Roads", layer.Title)
	assert.False(t, layer.Active)
	assert.Equal(t, -10.0, layer.BBox.X0)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLayerMissingRow(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("UPDATE layers SET").
		WithArgs("ghost", "http://h/wms",
			"", "", "", "", "",
			0.0, 0.0, 0.0, 0.0,
			"", "", "", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := cat.UpdateLayer(context.Background(), harvest.Layer{
		Name: "ghost", ServiceURL: "http://h/wms", IsPublic: true,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSRSCreatesRowAndAssociation(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("INSERT INTO spatial_reference_systems").
		WithArgs(4326).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO layer_srs").
		WithArgs("roads", "http://h/wms", 4326).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cat.EnsureSRS(context.Background(), "roads", "http://h/wms", 4326))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddLayerDateUpsert(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("INSERT INTO layer_dates").
		WithArgs("roads", "http://h/wms", "1888-01-01", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cat.AddLayerDate(context.Background(), "roads", "http://h/wms", "1888-01-01", 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLayerWM(t *testing.T) {
	t.Parallel()

	cat, mock := newMockCatalog(t)

	mock.ExpectExec("INSERT INTO layers_wm").
		WithArgs("geonode:roads", "http://wm/api", "transportation", "alice", "1990", "2000").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cat.UpsertLayerWM(context.Background(), "geonode:roads", "http://wm/api", harvest.LayerWM{
		Category:            "transportation",
		Username:            "alice",
		TemporalExtentStart: "1990",
		TemporalExtentEnd:   "2000",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
