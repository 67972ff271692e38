package model

import "time"

// Transfer is a staged custody change for one equipment item. It does not
// touch the equipment's holder until it is resolved.
type Transfer struct {
	ID           int64      `json:"id"`
	EquipmentID  int64      `json:"equipment_id"`
	FromHolderID int64      `json:"from_holder_id"`
	ToHolderID   int64      `json:"to_holder_id"`
	BatchID      string     `json:"batch_id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`

	// Joined fields (not always populated).
	EquipmentName  string `json:"equipment_name,omitempty"`
	FromHolderName string `json:"from_holder_name,omitempty"`
	ToHolderName   string `json:"to_holder_name,omitempty"`
}

// Transfer statuses. Pending transfers move to exactly one of the terminal
// states and never back.
const (
	TransferPending  = "pending"
	TransferVerified = "verified"
	TransferDeleted  = "deleted"
)
