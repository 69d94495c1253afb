package storage

import (
	"log/slog"
	"sync"
)

// WriterRegistry manages multiple JSONLWriter instances, one per tab+type
// combination, so each tab's records land in their own files.
type WriterRegistry struct {
	baseDir    string
	maxSizeMB  int
	bufferSize int

	// writers maps dataType -> tabID -> writer
	// e.g., "navigation" -> "f2ba2d9a" -> *JSONLWriter
	writers map[string]map[string]*JSONLWriter
	mu      sync.RWMutex
}

// NewWriterRegistry creates a new WriterRegistry for managing multiple JSONL writers.
func NewWriterRegistry(baseDir string, bufferSize int, maxSizeMB int) *WriterRegistry {
	return &WriterRegistry{
		baseDir:    baseDir,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		writers:    make(map[string]map[string]*JSONLWriter),
	}
}

// GetWriter returns (or creates) a JSONLWriter for the given data type and tab.
// dataType is "navigation" or "augmentation"; tabID is the short tab ID.
func (r *WriterRegistry) GetWriter(dataType, tabID string) *JSONLWriter {
	r.mu.RLock()
	if tabMap, ok := r.writers[dataType]; ok {
		if writer, ok := tabMap[tabID]; ok {
			r.mu.RUnlock()
			return writer
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if tabMap, ok := r.writers[dataType]; ok {
		if writer, ok := tabMap[tabID]; ok {
			return writer
		}
	}

	if r.writers[dataType] == nil {
		r.writers[dataType] = make(map[string]*JSONLWriter)
	}

	writer := NewJSONLWriterWithTabID(
		r.baseDir,
		dataType,
		r.bufferSize,
		r.maxSizeMB,
		tabID,
	)

	r.writers[dataType][tabID] = writer

	slog.Info("Created new JSONL writer",
		"data_type", dataType,
		"tab_id", tabID)

	return writer
}

// Close closes all managed writers.
func (r *WriterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for dataType, tabMap := range r.writers {
		for tabID, writer := range tabMap {
			if err := writer.Close(); err != nil {
				slog.Error("Failed to close writer",
					"data_type", dataType,
					"tab_id", tabID,
					"error", err)
				lastErr = err
			}
		}
	}

	r.writers = make(map[string]map[string]*JSONLWriter)

	return lastErr
}
