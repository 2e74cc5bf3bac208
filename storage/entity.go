// Package storage provides contract and user persistence on SQLite.
package storage

import "time"

// ContractStatus represents the lifecycle state of a persisted contract.
type ContractStatus string

const (
	// StatusPending marks a contract whose analysis has started but not finished.
	StatusPending ContractStatus = "PENDING"
	// StatusAnalyzed marks a contract whose analysis completed successfully.
	StatusAnalyzed ContractStatus = "ANALYZED"
	// StatusCritical is an extension point for flagged contracts. Nothing in
	// the analysis pipeline writes it.
	StatusCritical ContractStatus = "CRITICAL"
)

// Valid reports whether s is a known status value.
func (s ContractStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzed, StatusCritical:
		return true
	}
	return false
}

// Contract is a persisted contract record. The analysis worker exclusively
// owns a row from creation until the terminal write; rows are never deleted
// by the pipeline.
type Contract struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	OwnerID   int64          `json:"owner_id"`
	Status    ContractStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// User roles mirror the access levels of the API layer. Authorization is
// enforced there, not here.
const (
	RoleClient = "CLIENT"
	RoleLawyer = "LAWYER"
	RoleAdmin  = "ADMIN"
)

// User is a registered account able to own contracts.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
