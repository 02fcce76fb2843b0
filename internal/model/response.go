package model

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type RateLimitResponse struct {
	Detail     string `json:"detail"`
	RetryAfter int    `json:"retry_after"`
}

type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type StatusResponse struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type HealthCheck struct {
	Status    string   `json:"status"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
	LatencyMS *float64 `json:"latency_ms,omitempty"`
	Version   string   `json:"version,omitempty"`
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]HealthCheck `json:"checks"`
}
