package workflow

// ItemResult is the outcome of one item's resolution within a batch.
type ItemResult struct {
	TransferID    int64  `json:"transfer_id"`
	EquipmentID   int64  `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	Err           string `json:"error,omitempty"`
}

// BatchReport aggregates per-item outcomes of a batch resolution or a return.
// Resolved holds the items the decision was applied to, whether that decision
// was an approval or a rejection. On approval each item's registry write
// happens independently: one failure never rolls back or blocks the rest of
// the batch.
type BatchReport struct {
	BatchID  string       `json:"batch_id"`
	Approved bool         `json:"approved"`
	Resolved []ItemResult `json:"resolved"`
	Failed   []ItemResult `json:"failed,omitempty"`
}

// AllResolved reports whether every item in the batch succeeded.
func (r *BatchReport) AllResolved() bool {
	return len(r.Failed) == 0
}
