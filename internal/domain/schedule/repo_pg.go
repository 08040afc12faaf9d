package schedule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediclear/mediclear/internal/platform/db"
)

// =========== Surgery Repository ===========

type surgeryRepoPG struct{ pool db.Queryable }

func NewSurgeryRepoPG(pool db.Queryable) SurgeryRepository { return &surgeryRepoPG{pool: pool} }

func (r *surgeryRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const surgeryCols = `id, COALESCE(patient_email, ''), COALESCE(doctor_email, ''), COALESCE(title, ''),
	COALESCE(date, ''), COALESCE(notes, ''), COALESCE(raw, ''), COALESCE(simplified, ''), ts`

func (r *surgeryRepoPG) scanSurgery(row pgx.Row) (*Surgery, error) {
	var s Surgery
	err := row.Scan(&s.ID, &s.PatientEmail, &s.DoctorEmail, &s.Title, &s.Date,
		&s.Notes, &s.Raw, &s.Simplified, &s.TS)
	return &s, err
}

func (r *surgeryRepoPG) Create(ctx context.Context, s *Surgery) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO surgeries (patient_email, doctor_email, title, date, notes, raw, simplified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, ts`,
		s.PatientEmail, s.DoctorEmail, s.Title, s.Date, s.Notes, s.Raw, s.Simplified).Scan(&s.ID, &s.TS)
	if err != nil {
		return fmt.Errorf("insert surgery: %w", err)
	}
	return nil
}

func (r *surgeryRepoPG) List(ctx context.Context, patientEmail string) ([]*Surgery, error) {
	q := `SELECT ` + surgeryCols + ` FROM surgeries`
	var args []interface{}
	if patientEmail != "" {
		q += ` WHERE patient_email = $1`
		args = append(args, patientEmail)
	}
	q += ` ORDER BY date DESC, ts DESC, id DESC`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list surgeries: %w", err)
	}
	defer rows.Close()

	items := []*Surgery{}
	for rows.Next() {
		s, err := r.scanSurgery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan surgery: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *surgeryRepoPG) ListEntries(ctx context.Context, patientEmail string) ([]*SurgeryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, COALESCE(title, ''), COALESCE(date, '')
		FROM surgeries WHERE patient_email = $1
		ORDER BY date ASC, ts DESC, id DESC`, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("list surgery entries: %w", err)
	}
	defer rows.Close()

	items := []*SurgeryEntry{}
	for rows.Next() {
		var e SurgeryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Date); err != nil {
			return nil, fmt.Errorf("scan surgery entry: %w", err)
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

// =========== Medication Repository ===========

type medicationRepoPG struct{ pool db.Queryable }

func NewMedicationRepoPG(pool db.Queryable) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (patient_email, name, time)
		VALUES ($1, $2, $3)
		RETURNING id, ts`,
		m.PatientEmail, m.Name, m.Time).Scan(&m.ID, &m.TS)
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE medications SET name = $2, time = $3 WHERE id = $1`,
		m.ID, m.Name, m.Time)
	if err != nil {
		return fmt.Errorf("update medication %d: %w", m.ID, err)
	}
	return nil
}

func (r *medicationRepoPG) Delete(ctx context.Context, id int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete medication %d: %w", id, err)
	}
	return nil
}

func (r *medicationRepoPG) ListByPatient(ctx context.Context, patientEmail string) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, COALESCE(patient_email, ''), COALESCE(name, ''), COALESCE(time, ''), ts
		FROM medications WHERE patient_email = $1
		ORDER BY time ASC, ts DESC, id DESC`, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	items := []*Medication{}
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PatientEmail, &m.Name, &m.Time, &m.TS); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

// =========== Test Repository ===========

type testRepoPG struct{ pool db.Queryable }

func NewTestRepoPG(pool db.Queryable) TestRepository { return &testRepoPG{pool: pool} }

func (r *testRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

func (r *testRepoPG) Create(ctx context.Context, t *Test) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO tests (patient_email, name, date)
		VALUES ($1, $2, $3)
		RETURNING id, ts`,
		t.PatientEmail, t.Name, t.Date).Scan(&t.ID, &t.TS)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

func (r *testRepoPG) Update(ctx context.Context, t *Test) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE tests SET name = $2, date = $3 WHERE id = $1`,
		t.ID, t.Name, t.Date)
	if err != nil {
		return fmt.Errorf("update test %d: %w", t.ID, err)
	}
	return nil
}

func (r *testRepoPG) Delete(ctx context.Context, id int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM tests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete test %d: %w", id, err)
	}
	return nil
}

func (r *testRepoPG) ListByPatient(ctx context.Context, patientEmail string) ([]*Test, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, COALESCE(patient_email, ''), COALESCE(name, ''), COALESCE(date, ''), ts
		FROM tests WHERE patient_email = $1
		ORDER BY date ASC, ts DESC, id DESC`, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	items := []*Test{}
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.PatientEmail, &t.Name, &t.Date, &t.TS); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}
