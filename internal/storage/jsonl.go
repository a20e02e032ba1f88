package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"velocityFee/internal/model"
)

// JsonlSink appends tier engine events to a JSONL file. It satisfies
// the engine's event sink interface; write failures are logged rather
// than surfaced, since notifications are observational only.
type JsonlSink struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewJsonlSink(path string, logger *zap.Logger) *JsonlSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JsonlSink{path: path, logger: logger}
}

// Publish appends one event as a JSON line.
func (s *JsonlSink) Publish(event model.TierEvent) {
	if err := s.append(event); err != nil {
		s.logger.Warn("write tier event", zap.Error(err), zap.String("path", s.path))
	}
}

func (s *JsonlSink) append(event model.TierEvent) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal tier event: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write tier event: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
