package provider

import "time"

// Provider maps to the providers table. The id is the external provider
// identifier (e.g. "H456") carried on claims.
type Provider struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Address     *string   `db:"address" json:"address,omitempty"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
