package mailbox

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ClientConfig configures the IMAP-backed poller.
type ClientConfig struct {
	// Addr is the IMAP server in host:port form, e.g. "imap.gmail.com:993".
	Addr     string
	Username string
	Password string
	// Sender filters messages to the verification sender address.
	Sender string
	// Mailbox is the folder searched for codes.
	Mailbox string
	// SubjectPattern extracts the code from a subject line; the first capture
	// group is the code. Empty selects the default six-digit pattern.
	SubjectPattern string
	// PollInterval is the wait between successive mailbox checks.
	PollInterval time.Duration
	// MaxConnections bounds concurrent IMAP sessions across all workflows.
	MaxConnections int64
	// FetchesPerSecond throttles mailbox checks so dozens of concurrent
	// workflows don't hammer the IMAP server.
	FetchesPerSecond float64
}

func (c *ClientConfig) applyDefaults() {
	if c.Mailbox == "" {
		c.Mailbox = "INBOX"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 3
	}
	if c.FetchesPerSecond <= 0 {
		c.FetchesPerSecond = 2
	}
}

// Client implements Poller against a real IMAP server. It is safe for use by
// many concurrent workflow instances; connection count and fetch rate are
// bounded client-side.
type Client struct {
	cfg     ClientConfig
	pattern *regexp.Regexp
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *zap.Logger

	// fetch lists the most recent codes for an address, newest first. It is a
	// field so tests can substitute the IMAP round-trip.
	fetch func(ctx context.Context, address string, limit int) ([]string, error)
}

var _ Poller = (*Client)(nil)

// NewClient validates the configuration and builds an unconnected client;
// connections are dialed per fetch and closed immediately after.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Addr == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("mailbox: addr, username and password are required")
	}
	cfg.applyDefaults()

	pattern := defaultCodePattern
	if cfg.SubjectPattern != "" {
		var err error
		pattern, err = regexp.Compile(cfg.SubjectPattern)
		if err != nil {
			return nil, fmt.Errorf("mailbox: invalid subject pattern: %w", err)
		}
		if pattern.NumSubexp() < 1 {
			return nil, fmt.Errorf("mailbox: subject pattern needs a capture group for the code")
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:     cfg,
		pattern: pattern,
		sem:     semaphore.NewWeighted(cfg.MaxConnections),
		limiter: rate.NewLimiter(rate.Limit(cfg.FetchesPerSecond), 1),
		logger:  logger.Named("mailbox"),
	}
	c.fetch = c.fetchCodes
	return c, nil
}

// BaselineCodes snapshots the codes already present for the address.
func (c *Client) BaselineCodes(ctx context.Context, address string) (CodeSet, error) {
	codes, err := c.fetch(ctx, address, 10)
	if err != nil {
		return nil, err
	}
	set := make(CodeSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set, nil
}

// PollNewCode checks the mailbox on the poll interval until a code outside
// the baseline appears or the timeout elapses. Transient IMAP errors are
// logged and the polling continues; only context cancellation aborts early.
func (c *Client) PollNewCode(ctx context.Context, address string, baseline CodeSet, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		codes, err := c.fetch(ctx, address, 5)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("Mailbox check failed, will poll again",
				zap.String("address", address), zap.Error(err))
			continue
		}
		for _, code := range codes {
			if !baseline.Contains(code) {
				return code, nil
			}
		}
	}
	return "", nil
}

// fetchCodes opens an IMAP session and extracts the most recent codes
// addressed to the target, newest first, without duplicates.
func (c *Client) fetchCodes(ctx context.Context, address string, limit int) ([]string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	client, err := imapclient.DialTLS(c.cfg.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("mailbox: dial %s: %w", c.cfg.Addr, err)
	}
	defer client.Close()

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("mailbox: login: %w", err)
	}
	defer func() {
		// Logout failures only leak a server-side session that times out.
		_ = client.Logout().Wait()
	}()

	if _, err := client.Select(c.cfg.Mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("mailbox: select %q: %w", c.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "To", Value: address},
		},
	}
	if c.cfg.Sender != "" {
		criteria.Header = append(criteria.Header,
			imap.SearchCriteriaHeaderField{Key: "From", Value: c.cfg.Sender})
	}
	found, err := client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("mailbox: search: %w", err)
	}

	nums := found.AllSeqNums()
	if len(nums) == 0 {
		return nil, nil
	}
	if len(nums) > limit {
		nums = nums[len(nums)-limit:]
	}

	msgs, err := client.Fetch(imap.SeqSetNum(nums...), &imap.FetchOptions{Envelope: true}).Collect()
	if err != nil {
		return nil, fmt.Errorf("mailbox: fetch envelopes: %w", err)
	}

	// Newest first, deduplicated, so PollNewCode finds the fresh code first.
	seen := make(map[string]struct{}, len(msgs))
	var codes []string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Envelope == nil {
			continue
		}
		code := extractCode(c.pattern, msgs[i].Envelope.Subject)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}
