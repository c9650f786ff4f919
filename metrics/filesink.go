package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codesuggest/logger"

	"github.com/google/uuid"
)

// FileSink appends records as JSON lines. Every line of one batch carries the
// same batch id.
type FileSink struct {
	mu   sync.Mutex
	path string
}

type fileLine struct {
	Batch string `json:"batch"`
	Record
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Upload(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create telemetry dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open telemetry log: %w", err)
	}
	defer f.Close()

	batch := uuid.NewString()
	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(fileLine{Batch: batch, Record: r}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.ID, err)
		}
	}

	logger.Debug("telemetry: wrote %d records (batch %s)", len(records), batch)
	return nil
}
