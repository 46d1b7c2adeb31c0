package blastlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acme/voicedrop/internal/domain"
)

func TestAppendCreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blast-log.csv")
	log := NewCSVLog(path)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	outcomes := []domain.CallAttemptOutcome{
		{Number: "+15551110001", Success: true, CallSID: "CA1", Status: "queued", FromNumber: "+15550000001", CreatedAt: at},
		{Number: "+15551110002", Success: false, Status: "error", Error: `provider said "no"`, CreatedAt: at},
	}
	for _, outcome := range outcomes {
		if err := log.Append(outcome); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}

	wantHeader := []string{"timestamp", "number", "call_sid", "status", "success", "error", "from_number"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %s, want %s", i, rows[0][i], col)
		}
	}

	success := rows[1]
	if success[1] != "+15551110001" || success[2] != "CA1" || success[4] != "1" || success[5] != "" {
		t.Errorf("unexpected success row: %v", success)
	}

	failure := rows[2]
	if failure[2] != "" || failure[4] != "0" || failure[5] != `provider said "no"` || failure[6] != "" {
		t.Errorf("unexpected failure row: %v", failure)
	}
}
