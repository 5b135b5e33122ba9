package service

import (
	"context"
	"database/sql"

	"github.com/pfolio/portfolio-api/internal/database"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/version"
)

// SystemService reports service health.
type SystemService struct {
	db *sql.DB
}

func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// Status pings the database and reads the applied migration version.
// A reachable database whose migration table cannot be read is degraded.
func (s *SystemService) Status(ctx context.Context) model.SystemStatus {
	status := model.SystemStatus{AppVersion: version.Version}

	if err := database.HealthCheck(ctx, s.db); err != nil {
		status.Status = model.HealthUnhealthy
		status.Database = "disconnected"
		status.Error = err.Error()
		return status
	}
	status.Database = "connected"

	schema, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		status.Status = model.HealthDegraded
		status.Error = err.Error()
		return status
	}

	status.Status = model.HealthHealthy
	status.SchemaVersion = schema
	return status
}
