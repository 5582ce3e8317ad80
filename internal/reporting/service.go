// Package reporting aggregates call records and audit events so masked
// upstream failures stay visible to operators.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthmate/internal/audit"
	"healthmate/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// MaxRange bounds a single report.
const MaxRange = 31 * 24 * time.Hour

type CallLister interface {
	List(ctx context.Context, from, to time.Time) ([]calls.Call, error)
}

type EventLister interface {
	ListRange(ctx context.Context, from, to time.Time) ([]audit.Event, error)
}

type Service struct {
	calls CallLister
	audit EventLister
}

func NewService(callSrc CallLister, auditSrc EventLister) *Service {
	return &Service{calls: callSrc, audit: auditSrc}
}

func (s *Service) Report(ctx context.Context, r TimeRange) (Report, error) {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) || r.To.Sub(r.From) > MaxRange {
		return Report{}, ErrInvalidRequest
	}
	if s.calls == nil || s.audit == nil {
		return Report{}, errors.New("reporting: sources not configured")
	}

	rows, err := s.calls.List(ctx, r.From, r.To)
	if err != nil {
		return Report{}, fmt.Errorf("reporting: list calls: %w", err)
	}
	events, err := s.audit.ListRange(ctx, r.From, r.To)
	if err != nil {
		return Report{}, fmt.Errorf("reporting: list audit events: %w", err)
	}
	return Report{Range: r, Calls: SummarizeCalls(rows), Audit: SummarizeEvents(events)}, nil
}

func SummarizeCalls(rows []calls.Call) CallsSummary {
	var out CallsSummary
	for _, c := range rows {
		out.TotalCalls++
		if c.Mock {
			out.MockCalls++
			if c.FallbackReason != "" {
				out.FallbackCalls++
			}
		} else {
			out.RealCalls++
		}
		switch c.Status {
		case calls.CallStatusCreated:
			out.CreatedCalls++
		case calls.CallStatusActive:
			out.ActiveCalls++
		case calls.CallStatusEnded:
			out.EndedCalls++
			out.TotalDurationSeconds += c.DurationSeconds
		case calls.CallStatusFailed:
			out.FailedCalls++
		}
	}
	if out.EndedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.EndedCalls
	}
	if out.TotalCalls > 0 {
		out.FallbackRate = float64(out.FallbackCalls) / float64(out.TotalCalls)
	}
	return out
}

func SummarizeEvents(events []audit.Event) AuditSummary {
	out := AuditSummary{FallbackReasons: map[string]int{}}
	for _, e := range events {
		switch e.Type {
		case audit.EventTypeMockFallback:
			out.MockFallbacks++
			out.FallbackReasons[e.Reason]++
		case audit.EventTypeBookingRequested:
			out.BookingsRequested++
		case audit.EventTypeBookingFailed:
			out.BookingsFailed++
		case audit.EventTypeCallEnded:
			out.CallsEnded++
		}
	}
	if n := out.BookingsRequested + out.BookingsFailed; n > 0 {
		out.BookingSuccessRate = float64(out.BookingsRequested) / float64(n)
	}
	return out
}
