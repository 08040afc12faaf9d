package schedule

import "context"

type SurgeryRepository interface {
	Create(ctx context.Context, s *Surgery) error
	// List orders by date DESC, ts DESC. An empty patientEmail lists all.
	List(ctx context.Context, patientEmail string) ([]*Surgery, error)
	// ListEntries orders by date ASC, ts DESC.
	ListEntries(ctx context.Context, patientEmail string) ([]*SurgeryEntry, error)
}

// Update and Delete on an unknown id are not errors.
type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id int64) error
	// ListByPatient orders by time ASC, ts DESC.
	ListByPatient(ctx context.Context, patientEmail string) ([]*Medication, error)
}

type TestRepository interface {
	Create(ctx context.Context, t *Test) error
	Update(ctx context.Context, t *Test) error
	Delete(ctx context.Context, id int64) error
	// ListByPatient orders by date ASC, ts DESC.
	ListByPatient(ctx context.Context, patientEmail string) ([]*Test, error)
}
