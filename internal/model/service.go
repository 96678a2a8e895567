package model

// Service is a tenant service catalog entry.
type Service struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

// TotalDuration sums the durations of the services whose IDs are selected.
// Unknown IDs contribute nothing; an empty selection is 0.
func TotalDuration(catalog []Service, selected []int) int {
	if len(selected) == 0 {
		return 0
	}
	byID := make(map[int]int, len(catalog))
	for _, s := range catalog {
		byID[s.ID] = s.DurationMinutes
	}
	total := 0
	for _, id := range selected {
		total += byID[id]
	}
	return total
}
