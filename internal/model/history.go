package model

import "time"

// HistoryEntry records one completed custody change. The history table is
// append-only; entries are never updated or deleted.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipment_id"`
	HolderID    int64     `json:"holder_id"`
	RecordedAt  time.Time `json:"recorded_at"`

	// Joined fields (not always populated).
	EquipmentName string `json:"equipment_name,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`
}
