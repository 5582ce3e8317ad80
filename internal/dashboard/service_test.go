package dashboard

import (
	"errors"
	"testing"
	"time"

	"healthmate/internal/catalog"
)

func newService(t *testing.T, now time.Time) *Service {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return NewService(c, func() time.Time { return now })
}

func TestSummary(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newService(t, now)

	sum := svc.Summary()
	if sum.UserName != "Sara" || sum.MedicationsTaken != 1 || sum.MedicationsPending != 2 {
		t.Fatalf("unexpected medication counts: %+v", sum)
	}
	if sum.AppointmentsToday != 3 {
		t.Fatalf("expected 3 appointments today, got %d", sum.AppointmentsToday)
	}
	if sum.NextAppointment == nil || sum.NextAppointment.Doctor != "Dr. Simon Eszter" {
		t.Fatalf("unexpected next appointment: %+v", sum.NextAppointment)
	}

	late := newService(t, now.Add(6*time.Hour)).Summary()
	if late.NextAppointment != nil {
		t.Fatalf("no appointment is left after 18:00, got %+v", late.NextAppointment)
	}
}

func TestAppointments_DatedFromClock(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	appts := newService(t, now).Appointments()
	if len(appts) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(appts))
	}
	for _, a := range appts {
		if a.Date != "2026-03-09" {
			t.Fatalf("unexpected date %q", a.Date)
		}
	}
	if appts[0].Time != "09:00" || appts[2].Time != "16:00" {
		t.Fatalf("appointments must be ordered by time: %+v", appts)
	}
}

func TestMedications(t *testing.T) {
	svc := newService(t, time.Now())

	m, err := svc.ToggleMedication(1)
	if err != nil || !m.Taken {
		t.Fatalf("toggle: %+v %v", m, err)
	}
	if _, err := svc.ToggleMedication(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	added, err := svc.AddMedication(NewMedication{Name: " Vitamin D ", Dosage: "1 capsule"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID != 4 || added.Name != "Vitamin D" || added.Icon != "pill" || added.Taken {
		t.Fatalf("unexpected medication: %+v", added)
	}
	if _, err := svc.AddMedication(NewMedication{Name: "x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	sum := svc.Summary()
	if sum.MedicationsTaken != 2 || sum.MedicationsPending != 2 {
		t.Fatalf("unexpected counts after changes: %+v", sum)
	}
	if len(svc.History()) != 3 {
		t.Fatalf("expected seeded history")
	}
}
