package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediclear/mediclear/internal/platform/db"
)

type recordRepoPG struct{ pool db.Queryable }

func NewRecordRepoPG(pool db.Queryable) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const recordCols = `id, COALESCE(patient_email, ''), COALESCE(raw, ''), COALESCE(simplified, ''), ts`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientEmail, &rec.Raw, &rec.Simplified, &rec.TS)
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_records (patient_email, raw, simplified)
		VALUES ($1, $2, $3)
		RETURNING id, ts`,
		rec.PatientEmail, rec.Raw, rec.Simplified).Scan(&rec.ID, &rec.TS)
	if err != nil {
		return fmt.Errorf("insert doctor record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) List(ctx context.Context, patientEmail string) ([]*Record, error) {
	q := `SELECT ` + recordCols + ` FROM doctor_records`
	var args []interface{}
	if patientEmail != "" {
		q += ` WHERE patient_email = $1`
		args = append(args, patientEmail)
	}
	q += ` ORDER BY ts DESC, id DESC`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctor records: %w", err)
	}
	defer rows.Close()

	items := []*Record{}
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor record: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
