package encounter

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when no encounter matches the lookup.
var ErrNotFound = eris.New("encounter: not found")

// Repository persists confirmed encounters.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id string) (*Encounter, error)
	ListByPatient(ctx context.Context, patientID string) ([]Encounter, error)
}

type postgresRepo struct {
	db *sql.DB
}

// NewRepository creates a postgres-backed encounter repository.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, e *Encounter) error {
	prescriptionJSON, err := json.Marshal(e.Prescription)
	if err != nil {
		return eris.Wrap(err, "encounter: marshal prescription")
	}
	symptomsJSON, err := json.Marshal(e.Symptoms)
	if err != nil {
		return eris.Wrap(err, "encounter: marshal symptoms")
	}
	predictionsJSON, err := json.Marshal(e.Predictions)
	if err != nil {
		return eris.Wrap(err, "encounter: marshal predictions")
	}
	edgeCasesJSON, err := json.Marshal(e.EdgeCases)
	if err != nil {
		return eris.Wrap(err, "encounter: marshal edge cases")
	}

	query := `
		INSERT INTO encounters (id, patient_id, patient_email, final_diagnosis, prescription, symptoms, predictions, edge_cases, risk_level, narrative_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.PatientID, e.PatientEmail, e.FinalDiagnosis,
		prescriptionJSON, symptomsJSON, predictionsJSON, edgeCasesJSON,
		e.RiskLevel, e.NarrativeSummary, e.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "encounter: insert")
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Encounter, error) {
	query := `
		SELECT id, patient_id, patient_email, final_diagnosis, prescription, symptoms, predictions, edge_cases, risk_level, narrative_summary, created_at
		FROM encounters WHERE id = $1
	`
	e, err := scanEncounter(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "encounter: get by id")
	}
	return e, nil
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID string) ([]Encounter, error) {
	query := `
		SELECT id, patient_id, patient_email, final_diagnosis, prescription, symptoms, predictions, edge_cases, risk_level, narrative_summary, created_at
		FROM encounters WHERE patient_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, eris.Wrap(err, "encounter: list by patient")
	}
	defer rows.Close()

	var out []Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, eris.Wrap(err, "encounter: scan row")
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "encounter: iterate rows")
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEncounter(row scannable) (*Encounter, error) {
	var e Encounter
	var prescriptionJSON, symptomsJSON, predictionsJSON, edgeCasesJSON []byte

	err := row.Scan(
		&e.ID, &e.PatientID, &e.PatientEmail, &e.FinalDiagnosis,
		&prescriptionJSON, &symptomsJSON, &predictionsJSON, &edgeCasesJSON,
		&e.RiskLevel, &e.NarrativeSummary, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(prescriptionJSON) > 0 {
		if err := json.Unmarshal(prescriptionJSON, &e.Prescription); err != nil {
			return nil, eris.Wrap(err, "encounter: unmarshal prescription")
		}
	}
	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &e.Symptoms); err != nil {
			return nil, eris.Wrap(err, "encounter: unmarshal symptoms")
		}
	}
	if len(predictionsJSON) > 0 {
		if err := json.Unmarshal(predictionsJSON, &e.Predictions); err != nil {
			return nil, eris.Wrap(err, "encounter: unmarshal predictions")
		}
	}
	if len(edgeCasesJSON) > 0 {
		if err := json.Unmarshal(edgeCasesJSON, &e.EdgeCases); err != nil {
			return nil, eris.Wrap(err, "encounter: unmarshal edge cases")
		}
	}
	return &e, nil
}
