package blastlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/acme/voicedrop/internal/domain"
)

var header = []string{"timestamp", "number", "call_sid", "status", "success", "error", "from_number"}

// CSVLog is the append-only flat audit log of every dial attempt. It exists
// so operators can reconstruct a blast after a restart without touching the
// structured stores; writes must never block or fail the dispatch loop, so
// callers route errors to the operator log only.
type CSVLog struct {
	path string

	mu sync.Mutex
}

// NewCSVLog builds an audit log writing to path.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Append writes one outcome row, creating the file with a header first when
// it does not exist yet. Safe for concurrent blasts.
func (l *CSVLog) Append(outcome domain.CallAttemptOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("blast log: open: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("blast log: write header: %w", err)
		}
	}

	success := "0"
	if outcome.Success {
		success = "1"
	}

	row := []string{
		outcome.CreatedAt.UTC().Format(time.RFC3339),
		outcome.Number,
		outcome.CallSID,
		outcome.Status,
		success,
		outcome.Error,
		outcome.FromNumber,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("blast log: write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("blast log: flush: %w", err)
	}
	return nil
}

// Path returns the log file location.
func (l *CSVLog) Path() string {
	return l.path
}
