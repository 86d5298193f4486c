package models

import "time"

type StatusKind string

const (
	StatusPending StatusKind = "pending"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// TransactionStatus is the transient toast shown after async actions.
type TransactionStatus struct {
	ID        string     `json:"id,omitempty"`
	Visible   bool       `json:"visible"`
	Status    StatusKind `json:"status"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// HiddenStatus is the cleared toast.
func HiddenStatus() TransactionStatus {
	return TransactionStatus{Visible: false, Status: StatusPending}
}
