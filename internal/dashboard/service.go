// Package dashboard keeps the per-process patient dashboard: medications,
// medical history and today's appointments.
package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"healthmate/internal/catalog"
)

var (
	ErrNotFound        = errors.New("dashboard: not found")
	ErrInvalidArgument = errors.New("dashboard: invalid argument")
)

const dateLayout = "2006-01-02"

type Appointment struct {
	ID         int    `json:"id"`
	Doctor     string `json:"doctor"`
	Specialty  string `json:"specialty"`
	ProviderID int    `json:"provider_id,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

type Summary struct {
	UserName           string       `json:"user_name"`
	MedicationsTaken   int          `json:"medications_taken"`
	MedicationsPending int          `json:"medications_pending"`
	AppointmentsToday  int          `json:"appointments_today"`
	NextAppointment    *Appointment `json:"next_appointment,omitempty"`
}

type NewMedication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Icon     string `json:"icon"`
	Schedule string `json:"schedule"`
}

// Service holds mutable dashboard state seeded from the catalog at start.
// Catalog reloads do not reset it.
type Service struct {
	clock func() time.Time

	mu           sync.Mutex
	userName     string
	medications  []catalog.Medication
	history      []catalog.MedicalRecord
	appointments []Appointment
	nextMedID    int
}

func NewService(c *catalog.Catalog, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	s := &Service{
		clock:       clock,
		userName:    c.UserName,
		medications: append([]catalog.Medication(nil), c.Medications...),
		history:     append([]catalog.MedicalRecord(nil), c.MedicalHistory...),
	}
	for _, m := range s.medications {
		if m.ID >= s.nextMedID {
			s.nextMedID = m.ID + 1
		}
	}
	if s.nextMedID == 0 {
		s.nextMedID = 1
	}

	today := startOfDay(clock())
	for _, a := range c.Appointments {
		s.appointments = append(s.appointments, Appointment{
			ID:         a.ID,
			Doctor:     a.Doctor,
			Specialty:  a.Specialty,
			ProviderID: a.ProviderID,
			Date:       today.AddDate(0, 0, a.DayOffset).Format(dateLayout),
			Time:       a.Time,
		})
	}
	sort.SliceStable(s.appointments, func(i, j int) bool {
		a, b := s.appointments[i], s.appointments[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Time < b.Time
	})
	return s
}

func (s *Service) Medications() []catalog.Medication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Medication(nil), s.medications...)
}

// ToggleMedication flips the taken flag and returns the updated medication.
func (s *Service) ToggleMedication(id int) (catalog.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.medications {
		if s.medications[i].ID == id {
			s.medications[i].Taken = !s.medications[i].Taken
			return s.medications[i], nil
		}
	}
	return catalog.Medication{}, ErrNotFound
}

func (s *Service) AddMedication(in NewMedication) (catalog.Medication, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	if in.Name == "" || in.Dosage == "" {
		return catalog.Medication{}, fmt.Errorf("%w: name and dosage are required", ErrInvalidArgument)
	}
	if in.Icon == "" {
		in.Icon = "pill"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := catalog.Medication{
		ID:       s.nextMedID,
		Name:     in.Name,
		Dosage:   in.Dosage,
		Icon:     in.Icon,
		Schedule: strings.TrimSpace(in.Schedule),
	}
	s.nextMedID++
	s.medications = append(s.medications, m)
	return m, nil
}

func (s *Service) History() []catalog.MedicalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.MedicalRecord(nil), s.history...)
}

// Appointments lists appointments ordered by date and time.
func (s *Service) Appointments() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Appointment(nil), s.appointments...)
}

func (s *Service) Summary() Summary {
	now := s.clock()
	today := now.Format(dateLayout)
	clock := now.Format("15:04")

	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{UserName: s.userName}
	for _, m := range s.medications {
		if m.Taken {
			sum.MedicationsTaken++
		} else {
			sum.MedicationsPending++
		}
	}
	for i, a := range s.appointments {
		if a.Date == today {
			sum.AppointmentsToday++
		}
		if sum.NextAppointment == nil && (a.Date > today || (a.Date == today && a.Time >= clock)) {
			next := s.appointments[i]
			sum.NextAppointment = &next
		}
	}
	return sum
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
