package orchestrator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/voidmaw/regflow/internal/workflow"
)

var resultsHeader = []string{"timestamp", "email", "username", "password"}

// ResultLog appends successful registrations to a CSV file. The header is
// written once, appends are serialized and flushed per row so a crash loses
// at most the row in flight.
type ResultLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewResultLog builds a logger appending to path.
func NewResultLog(path string) *ResultLog {
	return &ResultLog{path: path, now: time.Now}
}

// Append records one successful registration.
func (l *ResultLog) Append(account workflow.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("orchestrator: open results: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("orchestrator: stat results: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(resultsHeader); err != nil {
			return fmt.Errorf("orchestrator: write results header: %w", err)
		}
	}
	row := []string{l.now().Format(time.RFC3339), account.Email, account.Username, account.Password}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("orchestrator: write result: %w", err)
	}
	w.Flush()
	return w.Error()
}

// CompletedEmails reads back the emails recorded in a results file. A
// missing file means no prior run and yields an empty list.
func CompletedEmails(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("orchestrator: open results: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var emails []string
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			return emails, nil
		}
		if err != nil {
			return nil, fmt.Errorf("orchestrator: read results: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == resultsHeader[0] {
				continue
			}
		}
		if len(record) > 1 {
			emails = append(emails, record[1])
		}
	}
}
