package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/voidmaw/regflow/internal/workflow"
)

var accountsHeader = []string{"email", "username", "password", "birthdate"}

// LoadAccounts reads the account batch from a CSV file. The header row is
// required so column order mistakes fail loudly instead of registering
// garbage.
func LoadAccounts(path string) ([]workflow.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("accounts: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("accounts: %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: read %s: %w", path, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, fmt.Errorf("accounts: %s: %w", path, err)
	}

	var out []workflow.Account
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("accounts: read %s: %w", path, err)
		}
		a := workflow.Account{
			Email:     strings.TrimSpace(record[0]),
			Username:  strings.TrimSpace(record[1]),
			Password:  record[2],
			Birthdate: strings.TrimSpace(record[3]),
		}
		if a.Email == "" || a.Username == "" || a.Password == "" || a.Birthdate == "" {
			return nil, fmt.Errorf("accounts: %s line %d: all fields are required", path, line)
		}
		out = append(out, a)
	}
}

func checkHeader(header []string) error {
	if len(header) != len(accountsHeader) {
		return fmt.Errorf("want header %v, got %v", accountsHeader, header)
	}
	for i, col := range accountsHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return fmt.Errorf("want header %v, got %v", accountsHeader, header)
		}
	}
	return nil
}

// SaveAccounts writes a generated batch to a CSV file readable by
// LoadAccounts. An existing file is overwritten.
func SaveAccounts(path string, batch []workflow.Account) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("accounts: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	rows := [][]string{accountsHeader}
	for _, a := range batch {
		rows = append(rows, []string{a.Email, a.Username, a.Password, a.Birthdate})
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("accounts: write %s: %w", path, err)
	}
	return f.Close()
}
