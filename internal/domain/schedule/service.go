package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mediclear/mediclear/internal/platform/db"
	"github.com/mediclear/mediclear/internal/platform/simplifier"
)

var (
	ErrMissingFields  = errors.New("required fields are missing")
	ErrMissingPatient = errors.New("patient is required")
)

type Service struct {
	surgeries   SurgeryRepository
	medications MedicationRepository
	tests       TestRepository
	tx          db.TxRunner
	simplifier  simplifier.Simplifier
}

func NewService(surgeries SurgeryRepository, medications MedicationRepository, tests TestRepository,
	tx db.TxRunner, s simplifier.Simplifier) *Service {
	return &Service{
		surgeries:   surgeries,
		medications: medications,
		tests:       tests,
		tx:          tx,
		simplifier:  s,
	}
}

// -- Surgery --

type SurgeryInput struct {
	Email string
	Title string
	Date  string
	Notes string
}

// CreateSurgery records a surgery and, in the same transaction, a mirror
// test entry named MirrorPrefix+title on the same date. Either both rows
// are written or neither is.
func (s *Service) CreateSurgery(ctx context.Context, doctorEmail string, in SurgeryInput) (*Surgery, error) {
	email := strings.TrimSpace(in.Email)
	title := strings.TrimSpace(in.Title)
	date := strings.TrimSpace(in.Date)
	if email == "" || title == "" || date == "" {
		return nil, ErrMissingFields
	}

	simplified := ""
	if in.Notes != "" {
		simplified = s.simplifier.Simplify(ctx, in.Notes)
	}

	sur := &Surgery{
		PatientEmail: email,
		DoctorEmail:  doctorEmail,
		Title:        title,
		Date:         date,
		Notes:        in.Notes,
		Raw:          in.Notes,
		Simplified:   simplified,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.surgeries.Create(ctx, sur); err != nil {
			return err
		}
		mirror := &Test{PatientEmail: email, Name: MirrorPrefix + title, Date: date}
		if err := s.tests.Create(ctx, mirror); err != nil {
			return fmt.Errorf("mirror surgery into tests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sur, nil
}

func (s *Service) ListSurgeries(ctx context.Context, patientEmail string) ([]*Surgery, error) {
	return s.surgeries.List(ctx, strings.TrimSpace(patientEmail))
}

// ListPatientSurgeries returns only the caller's own surgeries.
func (s *Service) ListPatientSurgeries(ctx context.Context, email string) ([]PatientSurgery, error) {
	items, err := s.surgeries.List(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]PatientSurgery, 0, len(items))
	for _, sur := range items {
		out = append(out, sur.ForPatient())
	}
	return out, nil
}

// -- Medication --

func (s *Service) CreateMedication(ctx context.Context, patientEmail, name, at string) (*Medication, error) {
	m := &Medication{
		PatientEmail: strings.TrimSpace(patientEmail),
		Name:         strings.TrimSpace(name),
		Time:         strings.TrimSpace(at),
	}
	if m.PatientEmail == "" || m.Name == "" || m.Time == "" {
		return nil, ErrMissingFields
	}
	if err := s.medications.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateMedication(ctx context.Context, id int64, name, at string) error {
	m := &Medication{ID: id, Name: strings.TrimSpace(name), Time: strings.TrimSpace(at)}
	if m.Name == "" || m.Time == "" {
		return ErrMissingFields
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) DeleteMedication(ctx context.Context, id int64) error {
	return s.medications.Delete(ctx, id)
}

// -- Test --

func (s *Service) CreateTest(ctx context.Context, patientEmail, name, date string) (*Test, error) {
	t := &Test{
		PatientEmail: strings.TrimSpace(patientEmail),
		Name:         strings.TrimSpace(name),
		Date:         strings.TrimSpace(date),
	}
	if t.PatientEmail == "" || t.Name == "" || t.Date == "" {
		return nil, ErrMissingFields
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateTest(ctx context.Context, id int64, name, date string) error {
	t := &Test{ID: id, Name: strings.TrimSpace(name), Date: strings.TrimSpace(date)}
	if t.Name == "" || t.Date == "" {
		return ErrMissingFields
	}
	return s.tests.Update(ctx, t)
}

func (s *Service) DeleteTest(ctx context.Context, id int64) error {
	return s.tests.Delete(ctx, id)
}

// -- Schedules --

// GetSchedules returns the patient's medications (time ASC), tests and
// surgeries (date ASC), newest entry first within equal keys.
func (s *Service) GetSchedules(ctx context.Context, patientEmail string) (*Schedules, error) {
	patientEmail = strings.TrimSpace(patientEmail)
	if patientEmail == "" {
		return nil, ErrMissingPatient
	}

	meds, err := s.medications.ListByPatient(ctx, patientEmail)
	if err != nil {
		return nil, err
	}
	tests, err := s.tests.ListByPatient(ctx, patientEmail)
	if err != nil {
		return nil, err
	}
	surgeries, err := s.surgeries.ListEntries(ctx, patientEmail)
	if err != nil {
		return nil, err
	}

	return &Schedules{
		Medications: nonNil(meds),
		Tests:       nonNil(tests),
		Surgeries:   nonNil(surgeries),
	}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
