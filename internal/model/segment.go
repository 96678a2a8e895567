package model

// Segment is a maximal run of contiguous slots with a derived display label.
type Segment struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Slots     []string `json:"slots"`
	SlotCount int      `json:"slot_count"`
}
