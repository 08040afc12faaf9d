package schedule

import "github.com/mediclear/mediclear/internal/platform/db"

const tsDecl = "TIMESTAMPTZ NOT NULL DEFAULT NOW()"

// TableSpecs lists the columns the schedule write paths depend on.
// doctor_email and raw only exist on databases created after surgeries
// started recording the ordering clinician.
func TableSpecs() []db.TableSpec {
	return []db.TableSpec{
		{
			Table: "surgeries",
			Columns: []db.Column{
				{Name: "patient_email", Decl: "TEXT"},
				{Name: "doctor_email", Decl: "TEXT"},
				{Name: "title", Decl: "TEXT"},
				{Name: "date", Decl: "TEXT"},
				{Name: "notes", Decl: "TEXT"},
				{Name: "raw", Decl: "TEXT"},
				{Name: "simplified", Decl: "TEXT"},
				{Name: "ts", Decl: tsDecl},
			},
		},
		{
			Table: "medications",
			Columns: []db.Column{
				{Name: "patient_email", Decl: "TEXT"},
				{Name: "name", Decl: "TEXT"},
				{Name: "time", Decl: "TEXT"},
				{Name: "ts", Decl: tsDecl},
			},
		},
		{
			Table: "tests",
			Columns: []db.Column{
				{Name: "patient_email", Decl: "TEXT"},
				{Name: "name", Decl: "TEXT"},
				{Name: "date", Decl: "TEXT"},
				{Name: "ts", Decl: tsDecl},
			},
		},
	}
}

// WriteColumns maps each table to the columns its inserts supply.
func WriteColumns() map[string][]string {
	return map[string][]string{
		"surgeries":   {"patient_email", "doctor_email", "title", "date", "notes", "raw", "simplified"},
		"medications": {"patient_email", "name", "time"},
		"tests":       {"patient_email", "name", "date"},
	}
}
