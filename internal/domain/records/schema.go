package records

import "github.com/mediclear/mediclear/internal/platform/db"

func TableSpecs() []db.TableSpec {
	return []db.TableSpec{{
		Table: "doctor_records",
		Columns: []db.Column{
			{Name: "patient_email", Decl: "TEXT"},
			{Name: "raw", Decl: "TEXT"},
			{Name: "simplified", Decl: "TEXT"},
			{Name: "ts", Decl: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	}}
}

// WriteColumns maps each table to the columns its inserts supply.
func WriteColumns() map[string][]string {
	return map[string][]string{
		"doctor_records": {"patient_email", "raw", "simplified"},
	}
}
