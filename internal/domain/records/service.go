package records

import (
	"context"
	"errors"
	"strings"

	"github.com/mediclear/mediclear/internal/platform/simplifier"
)

var ErrMissingFields = errors.New("patient email and instruction are required")

type Service struct {
	records    RecordRepository
	simplifier simplifier.Simplifier
}

func NewService(records RecordRepository, s simplifier.Simplifier) *Service {
	return &Service{records: records, simplifier: s}
}

// Submit stores a clinician instruction together with its simplified form.
// Any non-empty instruction is accepted verbatim.
func (s *Service) Submit(ctx context.Context, patientEmail, raw string) (*Record, error) {
	patientEmail = strings.TrimSpace(patientEmail)
	if patientEmail == "" || raw == "" {
		return nil, ErrMissingFields
	}

	rec := &Record{
		PatientEmail: patientEmail,
		Raw:          raw,
		Simplified:   s.simplifier.Simplify(ctx, raw),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ListForDoctor(ctx context.Context, patientEmail string) ([]*Record, error) {
	return s.records.List(ctx, strings.TrimSpace(patientEmail))
}

// ListForPatient returns only the caller's own records.
func (s *Service) ListForPatient(ctx context.Context, email string) ([]PatientRecord, error) {
	recs, err := s.records.List(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]PatientRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ForPatient())
	}
	return out, nil
}
