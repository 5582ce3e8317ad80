package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummary aggregates the calls created in a range. Mock calls include
// both configured mock sessions and upstream fallbacks.
type CallsSummary struct {
	TotalCalls    int `json:"total_calls"`
	RealCalls     int `json:"real_calls"`
	MockCalls     int `json:"mock_calls"`
	FallbackCalls int `json:"fallback_calls"`

	CreatedCalls int `json:"created_calls"`
	ActiveCalls  int `json:"active_calls"`
	EndedCalls   int `json:"ended_calls"`
	FailedCalls  int `json:"failed_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// FallbackRate is FallbackCalls / TotalCalls.
	FallbackRate float64 `json:"fallback_rate"`
}

// AuditSummary counts the audit events of a range.
type AuditSummary struct {
	MockFallbacks     int `json:"mock_fallbacks"`
	BookingsRequested int `json:"bookings_requested"`
	BookingsFailed    int `json:"bookings_failed"`
	CallsEnded        int `json:"calls_ended"`

	// FallbackReasons counts mock_fallback events by reason.
	FallbackReasons map[string]int `json:"fallback_reasons"`

	BookingSuccessRate float64 `json:"booking_success_rate"`
}

type Report struct {
	Range TimeRange    `json:"range"`
	Calls CallsSummary `json:"calls"`
	Audit AuditSummary `json:"audit"`
}
