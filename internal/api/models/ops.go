package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
	Cache      CacheStatus       `json:"cache"`
	Refresh    *RefreshStatus    `json:"refresh,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// CacheStatus summarises the report cache.
type CacheStatus struct {
	HasData         bool       `json:"hasData"`
	Locations       int        `json:"locations"`
	Expired         int        `json:"expired"`
	Stale           int        `json:"stale"`
	NewestFetchedAt *Timestamp `json:"newestFetchedAt,omitempty"`
	Provider        string     `json:"provider,omitempty"`
}

// RefreshStatus describes the background refresh poller.
type RefreshStatus struct {
	Running         bool       `json:"running"`
	IntervalSeconds int64      `json:"intervalSeconds"`
	Runs            int64      `json:"runs"`
	LastRunAt       *Timestamp `json:"lastRunAt,omitempty"`
	LastError       *string    `json:"lastError,omitempty"`
}
