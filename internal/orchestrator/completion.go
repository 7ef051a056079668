package orchestrator

import (
	"strings"
	"sync"
)

// CompletionSet tracks which accounts have already been registered so reruns
// over the same input skip them. Keys are lowercased trimmed emails.
type CompletionSet struct {
	mu   sync.Mutex
	done map[string]struct{}
}

// NewCompletionSet seeds the set with already-completed emails, typically
// read back from a previous run's results file.
func NewCompletionSet(emails []string) *CompletionSet {
	s := &CompletionSet{done: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		s.done[normalizeEmail(e)] = struct{}{}
	}
	return s
}

// Claim marks the email done and reports whether this call was the first to
// do so. A false return means the account is already handled, by a previous
// run or by a concurrent worker.
func (s *CompletionSet) Claim(email string) bool {
	key := normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[key]; ok {
		return false
	}
	s.done[key] = struct{}{}
	return true
}

// Release returns a claim after a failed attempt so a later run can retry
// the account.
func (s *CompletionSet) Release(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.done, normalizeEmail(email))
}

// Done reports whether the email is marked completed.
func (s *CompletionSet) Done(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.done[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
