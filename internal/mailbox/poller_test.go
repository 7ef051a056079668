package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fetch func(context.Context, string, int) ([]string, error)) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Addr:         "imap.example.com:993",
		Username:     "inbox@example.com",
		Password:     "app-password",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	c.fetch = fetch
	return c
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Login Code: 123456", "123456"},
		{"Your login code 654321 expires soon", "654321"},
		{"Verification Code:987654", "987654"},
		{"Welcome aboard", ""},
		{"Code: 12345", ""},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, extractCode(defaultCodePattern, tc.subject), "subject %q", tc.subject)
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err, "credentials are mandatory")

	_, err = NewClient(ClientConfig{Addr: "a:1", Username: "u", Password: "p", SubjectPattern: "("}, nil)
	assert.Error(t, err, "broken pattern is rejected")

	_, err = NewClient(ClientConfig{Addr: "a:1", Username: "u", Password: "p", SubjectPattern: `\d{6}`}, nil)
	assert.Error(t, err, "pattern without capture group is rejected")
}

func TestBaselineCodes(t *testing.T) {
	c := newTestClient(t, func(context.Context, string, int) ([]string, error) {
		return []string{"111111", "222222", "111111"}, nil
	})

	baseline, err := c.BaselineCodes(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Len(t, baseline, 2)
	assert.True(t, baseline.Contains("111111"))
	assert.True(t, baseline.Contains("222222"))
	assert.False(t, baseline.Contains("333333"))
}

func TestPollNewCode_SkipsBaseline(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(context.Context, string, int) ([]string, error) {
		calls++
		if calls < 3 {
			return []string{"111111"}, nil // Stale code only.
		}
		return []string{"999999", "111111"}, nil
	})

	baseline := CodeSet{"111111": {}}
	code, err := c.PollNewCode(context.Background(), "a@b.com", baseline, 200*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "999999", code)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestPollNewCode_TimesOutWithoutError(t *testing.T) {
	c := newTestClient(t, func(context.Context, string, int) ([]string, error) {
		return []string{"111111"}, nil
	})

	code, err := c.PollNewCode(context.Background(), "a@b.com", CodeSet{"111111": {}}, 30*time.Millisecond)

	require.NoError(t, err, "an absent code is a recoverable outcome, not an error")
	assert.Empty(t, code)
}

func TestPollNewCode_SurvivesTransientFetchErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(context.Context, string, int) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("imap: connection reset")
		}
		return []string{"424242"}, nil
	})

	code, err := c.PollNewCode(context.Background(), "a@b.com", CodeSet{}, 200*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "424242", code)
}

func TestPollNewCode_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, func(context.Context, string, int) ([]string, error) {
		return nil, nil
	})

	_, err := c.PollNewCode(ctx, "a@b.com", CodeSet{}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
