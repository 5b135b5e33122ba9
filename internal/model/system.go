package model

// Health states reported by the system endpoint.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// SystemStatus describes service health and the running build.
type SystemStatus struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	AppVersion    string `json:"appVersion"`
	SchemaVersion int64  `json:"schemaVersion"`
	Error         string `json:"error,omitempty"`
}

// Healthy reports whether every check passed.
func (s SystemStatus) Healthy() bool {
	return s.Status == HealthHealthy
}
