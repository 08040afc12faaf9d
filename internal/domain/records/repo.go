package records

import "context"

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	// List returns records newest first. An empty patientEmail lists all.
	List(ctx context.Context, patientEmail string) ([]*Record, error)
}
