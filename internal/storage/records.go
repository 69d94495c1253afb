package storage

import "time"

// NavigationRecord is one observed tab navigation.
type NavigationRecord struct {
	Timestamp time.Time `json:"timestamp"`
	TabID     string    `json:"tab_id"`
	RunID     string    `json:"run_id,omitempty"`
	URL       string    `json:"url"`
	FrameID   string    `json:"frame_id,omitempty"`
	InPage    bool      `json:"in_page"` // history API navigation, no frame load
}

// AugmentationRecord is one completed augmentation pass.
type AugmentationRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	TabID       string    `json:"tab_id"`
	RunID       string    `json:"run_id,omitempty"`
	URL         string    `json:"url"`
	TableIndex  int       `json:"table_index"`
	RowsBound   int       `json:"rows_bound"`
	RowsMissing int       `json:"rows_missing"`
	RowsSkipped int       `json:"rows_skipped"`
}
