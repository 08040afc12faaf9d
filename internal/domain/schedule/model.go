package schedule

import "time"

// MirrorPrefix marks the test entry created alongside every surgery so the
// operation shows up in the patient's test schedule.
const MirrorPrefix = "[수술] "

type Surgery struct {
	ID           int64     `json:"id"`
	PatientEmail string    `json:"patient_email"`
	DoctorEmail  string    `json:"doctor_email"`
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	Notes        string    `json:"notes"`
	Raw          string    `json:"raw"`
	Simplified   string    `json:"simplified"`
	TS           time.Time `json:"ts"`
}

// SurgeryRef is returned to the doctor right after creation.
type SurgeryRef struct {
	ID           int64  `json:"id"`
	PatientEmail string `json:"patient_email"`
	Title        string `json:"title"`
	Date         string `json:"date"`
}

// SurgeryEntry is the schedule view of a surgery.
type SurgeryEntry struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// PatientSurgery is the projection patients see in their surgery list.
type PatientSurgery struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Notes      string `json:"notes"`
	Simplified string `json:"simplified"`
}

func (s *Surgery) Ref() SurgeryRef {
	return SurgeryRef{ID: s.ID, PatientEmail: s.PatientEmail, Title: s.Title, Date: s.Date}
}

func (s *Surgery) ForPatient() PatientSurgery {
	return PatientSurgery{ID: s.ID, Title: s.Title, Date: s.Date, Notes: s.Notes, Simplified: s.Simplified}
}

type Medication struct {
	ID           int64     `json:"id"`
	PatientEmail string    `json:"patient_email"`
	Name         string    `json:"name"`
	Time         string    `json:"time"`
	TS           time.Time `json:"ts"`
}

type Test struct {
	ID           int64     `json:"id"`
	PatientEmail string    `json:"patient_email"`
	Name         string    `json:"name"`
	Date         string    `json:"date"`
	TS           time.Time `json:"ts"`
}

// Schedules is one patient's combined medication, test and surgery plan.
type Schedules struct {
	Medications []*Medication   `json:"medications"`
	Tests       []*Test         `json:"tests"`
	Surgeries   []*SurgeryEntry `json:"surgeries"`
}
