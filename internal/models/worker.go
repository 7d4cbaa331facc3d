package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatusType string

const (
	AccountStatusIncomplete AccountStatusType = "INCOMPLETE"
	AccountStatusActive     AccountStatusType = "ACTIVE"
	AccountStatusSuspended  AccountStatusType = "SUSPENDED"
)

// Worker is a field employee tracking time through the worker portal.
type Worker struct {
	Versioned

	ID            uuid.UUID         `json:"id"`
	Email         string            `json:"email"`
	PhoneNumber   string            `json:"phone_number"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	AccountStatus AccountStatusType `json:"account_status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (w *Worker) GetID() string {
	return w.ID.String()
}

func (w *Worker) DisplayName() string {
	return w.FirstName + " " + w.LastName
}
