// Package encounter holds the confirmed clinical record and the
// confirmation transaction that creates it.
package encounter

import (
	"time"

	"diagnosis-decoder/internal/edgecase"
	"diagnosis-decoder/internal/inference"
)

// Prescription is the clinician-entered treatment. Individual fields may be
// empty, but the object itself is required once confirmation begins.
type Prescription struct {
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

// Encounter is the confirmed record of one consultation. Created exactly
// once per confirmation transaction and immutable afterwards.
type Encounter struct {
	ID               string                          `json:"id" db:"id"`
	PatientID        string                          `json:"patient_id" db:"patient_id"`
	PatientEmail     string                          `json:"patient_email" db:"patient_email"`
	FinalDiagnosis   string                          `json:"final_diagnosis" db:"final_diagnosis"`
	Prescription     Prescription                    `json:"prescription" db:"prescription"`
	Symptoms         []inference.SymptomObservation  `json:"symptoms" db:"symptoms"`
	Predictions      []inference.DiagnosisPrediction `json:"predictions" db:"predictions"`
	EdgeCases        []edgecase.EdgeCase             `json:"edge_cases" db:"edge_cases"`
	RiskLevel        inference.RiskLevel             `json:"risk_level" db:"risk_level"`
	NarrativeSummary string                          `json:"narrative_summary" db:"narrative_summary"`
	CreatedAt        time.Time                       `json:"created_at" db:"created_at"`
}

// Notification is the completion summary published on the process-local bus
// for any listening dashboard.
type Notification struct {
	ID           string                          `json:"id"`
	PatientName  string                          `json:"patient_name"`
	Date         string                          `json:"date"`
	Time         string                          `json:"time"`
	Diagnosis    string                          `json:"diagnosis"`
	Risk         string                          `json:"risk"`
	Status       string                          `json:"status"`
	Symptoms     []string                        `json:"symptoms"`
	Predictions  []inference.DiagnosisPrediction `json:"predictions"`
	Prescription Prescription                    `json:"prescription"`
	Summary      string                          `json:"summary"`
}
