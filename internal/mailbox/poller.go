// Package mailbox delivers one-time verification codes from an IMAP mailbox.
// The workflow consumes only two operations: the set of codes already present
// before an attempt begins, and the first new code since that baseline.
package mailbox

import (
	"context"
	"regexp"
	"time"
)

// CodeSet is a set of verification codes keyed by their digits.
type CodeSet map[string]struct{}

// Contains reports membership.
func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Poller is the verification-code source consumed by the account workflow.
// The baseline is fixed at workflow start and never expanded by resends:
// a resent code is a new code not yet in the baseline.
type Poller interface {
	// BaselineCodes returns the codes already deliverable for the address
	// before the workflow begins, so stale codes from prior attempts are
	// never mistaken for the fresh one.
	BaselineCodes(ctx context.Context, address string) (CodeSet, error)
	// PollNewCode waits up to timeout for a code not in baseline. It returns
	// the empty string when none arrived; the caller treats that as a
	// recoverable resend trigger, not an error.
	PollNewCode(ctx context.Context, address string, baseline CodeSet, timeout time.Duration) (string, error)
}

// defaultCodePattern matches a six-digit code in a message subject. The
// first capture group is the code.
var defaultCodePattern = regexp.MustCompile(`(?i)code[:\s]*(\d{6})`)

// extractCode pulls the code out of a subject line, or "" when absent.
func extractCode(pattern *regexp.Regexp, subject string) string {
	m := pattern.FindStringSubmatch(subject)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
