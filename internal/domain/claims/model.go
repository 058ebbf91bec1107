package claims

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a claim. A claim is created PENDING
// and moves exactly once, synchronously, to one of the terminal statuses.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusPartial  Status = "PARTIAL"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is one of the known claim statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPartial, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a final adjudication outcome.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusPartial || s == StatusRejected
}

// Claim maps to the claims table. ApprovedAmount, Status, FraudFlag and
// FraudReason are owned by the adjudication engine; everything else is set
// once at submission and read-only afterwards. A claim is immutable once
// ProcessedAt is set.
type Claim struct {
	ID             uuid.UUID  `db:"id" json:"claim_id"`
	MemberID       string     `db:"member_id" json:"member_id"`
	ProviderID     string     `db:"provider_id" json:"provider_id"`
	DiagnosisCode  string     `db:"diagnosis_code" json:"diagnosis_code"`
	ProcedureCode  string     `db:"procedure_code" json:"procedure_code"`
	ClaimAmount    float64    `db:"claim_amount" json:"claim_amount"`
	ApprovedAmount float64    `db:"approved_amount" json:"approved_amount"`
	Status         Status     `db:"status" json:"status"`
	FraudFlag      bool       `db:"fraud_flag" json:"fraud_flag"`
	FraudReason    *string    `db:"fraud_reason" json:"fraud_reason,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
