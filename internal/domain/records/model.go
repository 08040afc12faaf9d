package records

import "time"

// Record is a clinician instruction and its patient-facing rewrite.
type Record struct {
	ID           int64     `json:"id"`
	PatientEmail string    `json:"patient_email"`
	Raw          string    `json:"raw"`
	Simplified   string    `json:"simplified"`
	TS           time.Time `json:"ts"`
}

// PatientRecord is the projection patients see.
type PatientRecord struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Raw        string `json:"raw"`
	Simplified string `json:"simplified"`
}

func (r *Record) ForPatient() PatientRecord {
	return PatientRecord{
		ID:         r.ID,
		Date:       r.TS.Local().Format("2006-01-02"),
		Raw:        r.Raw,
		Simplified: r.Simplified,
	}
}
