package member

import (
	"time"
)

// Status is the lifecycle status of an insurance member.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is one of the known member statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// Member maps to the members table. The id is the external member
// identifier (e.g. "M123") carried on claims.
type Member struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PhoneNumber  *string   `db:"phone_number" json:"phone_number,omitempty"`
	Status       Status    `db:"status" json:"status"`
	BenefitLimit float64   `db:"benefit_limit" json:"benefit_limit"`
	UsedBenefit  float64   `db:"used_benefit" json:"used_benefit"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingBenefit is the balance a claim can still draw against.
// used_benefit never exceeds benefit_limit, so this is never negative.
func (m *Member) RemainingBenefit() float64 {
	return m.BenefitLimit - m.UsedBenefit
}

// IsEligible reports whether the member can have claims adjudicated at all.
func (m *Member) IsEligible() bool {
	return m.Status == StatusActive && m.RemainingBenefit() > 0
}
