package entities

// ExtractionState tracks the collector's progress through a lazily loaded list.
// It lives for one run and is never persisted.
type ExtractionState struct {
	ExpectedTotal        int `json:"expected_total"`
	VisibleCount         int `json:"visible_count"`
	PreviousVisibleCount int `json:"previous_visible_count"`
	Triggers             int `json:"triggers"` // growth triggers issued
}

// Reached reports whether the visible count caught up with the advertised total
func (s ExtractionState) Reached() bool {
	return s.VisibleCount >= s.ExpectedTotal
}

// Stalled reports whether the last read showed no growth
func (s ExtractionState) Stalled() bool {
	return s.VisibleCount == s.PreviousVisibleCount
}
