package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/testutil"
	"github.com/pfolio/portfolio-api/internal/version"
)

// TestSystemService_Status tests the health report.
//
// WHY: the health endpoint is what deploy probes watch; it must report the
// applied schema so a half-migrated database is visible.
func TestSystemService_Status(t *testing.T) {
	t.Run("migrated database is healthy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)

		status := svc.Status(context.Background())

		assert.True(t, status.Healthy())
		assert.Equal(t, "connected", status.Database)
		assert.Equal(t, int64(2), status.SchemaVersion)
		assert.Equal(t, version.Version, status.AppVersion)
		assert.Empty(t, status.Error)
	})

	t.Run("closed database is unhealthy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)
		db.Close()

		status := svc.Status(context.Background())

		assert.Equal(t, model.HealthUnhealthy, status.Status)
		assert.Equal(t, "disconnected", status.Database)
		assert.NotEmpty(t, status.Error)
	})
}
