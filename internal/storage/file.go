package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"portfolio-assistant/internal/logger"
)

const maxEventLine = 10 << 20

// FileRecorder appends interactions to a JSONL file. The file stays open for
// appends until Close.
type FileRecorder struct {
	path string
	mu   sync.Mutex
	out  *os.File
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure interaction log dir: %w", err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	return &FileRecorder{path: path, out: out}, nil
}

// AppendInteraction writes event as one line.
func (r *FileRecorder) AppendInteraction(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return errors.New("interaction log closed")
	}
	if _, err := r.out.Write(line); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

func (r *FileRecorder) LoadInteractions() ([]Event, error) {
	var events []Event
	err := r.ScanInteractions(func(ev Event) bool {
		events = append(events, ev)
		return true
	})
	return events, err
}

// ScanInteractions calls fn for each recorded event in file order until fn
// returns false. Lines that fail to decode, such as a write torn by a crash,
// are logged and skipped.
func (r *FileRecorder) ScanInteractions(fn func(Event) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)
	for n := 1; sc.Scan(); n++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.L().Warn("interaction_line_skipped", zap.String("path", r.path), zap.Int("line", n), zap.Error(err))
			continue
		}
		if !fn(ev) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read interaction log: %w", err)
	}
	return nil
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return nil
	}
	err := r.out.Close()
	r.out = nil
	return err
}
