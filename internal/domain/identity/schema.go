package identity

import "github.com/mediclear/mediclear/internal/platform/db"

// TableSpecs lists the columns the identity write paths depend on.
func TableSpecs() []db.TableSpec {
	return []db.TableSpec{{
		Table: "users",
		Columns: []db.Column{
			{Name: "email", Decl: "TEXT UNIQUE"},
			{Name: "password", Decl: "TEXT"},
			{Name: "role", Decl: "TEXT NOT NULL DEFAULT 'patient'"},
			{Name: "created_at", Decl: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	}}
}

// WriteColumns maps each table to the columns its inserts supply.
func WriteColumns() map[string][]string {
	return map[string][]string{
		"users": {"email", "password", "role"},
	}
}
