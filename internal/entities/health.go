package entities

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
	Error     HealthStatus = "error"
)

type HealthResponse struct {
	Status       HealthStatus `json:"status"`
	LatestLedger uint32       `json:"latestLedger,omitempty"`
	Database     HealthStatus `json:"database"`
	Ledger       HealthStatus `json:"ledger"`
}
