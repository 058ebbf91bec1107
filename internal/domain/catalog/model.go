package catalog

import "time"

// Diagnosis maps to the diagnoses table. Claims reference diagnoses by
// code; the engine only checks existence.
type Diagnosis struct {
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Procedure maps to the procedures table. AverageCost is the actuarial
// baseline the fraud evaluator measures claim amounts against.
type Procedure struct {
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	AverageCost float64   `db:"average_cost" json:"average_cost"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
