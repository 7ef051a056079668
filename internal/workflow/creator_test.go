package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/browser"
	"github.com/voidmaw/regflow/internal/mailbox"
	"github.com/voidmaw/regflow/internal/motion"
)

func testAccount() Account {
	return Account{
		Email:     "neo77@example.com",
		Username:  "neo77",
		Password:  "S3cure!walrus",
		Birthdate: "02/29/2000",
	}
}

// fastConfig keeps the waits short enough for tests while preserving the
// production selector set.
func fastConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxOTPRetries = 1
	cfg.CodeWaitTimeout = 50 * time.Millisecond
	cfg.SettleWait = 0
	cfg.ScreenshotDir = t.TempDir()
	return cfg
}

func newTestCreator(t *testing.T, d *scriptedDriver, p mailbox.Poller, cfg Config) *Creator {
	t.Helper()
	mcfg := motion.DefaultConfig()
	mcfg.SpeedFactor = 0.0001
	mcfg.MaxNodes = 3
	mcfg.SamplesPerPath = 4
	synth, err := motion.New(mcfg)
	require.NoError(t, err)

	it := browser.NewInteractor(d, synth, browser.InteractorOptions{
		Speed: 1000,
		Rng:   rand.New(rand.NewSource(11)),
	}, zap.NewNop())

	c, err := NewCreator(d, it, p, cfg, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewCreatorRequiresCollaborators(t *testing.T) {
	_, err := NewCreator(nil, nil, nil, DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestCreateAccountSuccess(t *testing.T) {
	d := newScriptedDriver()
	d.url = "https://account.example.com/welcome"
	d.checked["#newsletter"] = true

	poller := &fakePoller{
		baseline: mailbox.CodeSet{"999999": {}},
		codes:    []string{"123456"},
	}
	cfg := fastConfig(t)
	c := newTestCreator(t, d, poller, cfg)

	account := testAccount()
	outcome := c.CreateAccount(context.Background(), account)
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome)

	site := cfg.Site
	assert.Equal(t, []string{site.StartURL}, d.navigated)
	assert.Equal(t, account.Email, d.typed(site.EmailInputSelector))
	assert.Equal(t, account.Username, d.typed(site.UsernameSelector))
	assert.Equal(t, account.Password, d.typed(site.PasswordSelector))
	assert.Equal(t, account.Password, d.typed(site.PasswordConfirmSelector))
	assert.Equal(t, "02", d.typed(site.BirthMonthSelector))
	assert.Equal(t, "29", d.typed(site.BirthDaySelector))
	assert.Equal(t, "2000", d.typed(site.BirthYearSelector))

	// Each code digit lands in its own input, in order.
	for i, digit := range "123456" {
		sel := fmt.Sprintf(site.OTPDigitSelector, i+1)
		assert.Equal(t, string(digit), d.typed(sel), "digit %d", i+1)
	}

	// Pre-checked marketing box is cleared; the unchecked one is left alone.
	assert.Equal(t, 1, d.clickCount("#newsletter"))
	assert.Equal(t, 0, d.clickCount("#thirdpartycomms"))

	// Code arrived first try: no resend, mailbox snapshotted exactly once.
	assert.Equal(t, 0, d.clickCount(site.OTPResendSelector))
	assert.Equal(t, 1, poller.baselineCalls)
	assert.Equal(t, 1, poller.polls())

	assert.Empty(t, d.screenshotsSnapshot())
}

func TestCreateAccountCodeTimeout(t *testing.T) {
	d := newScriptedDriver()
	poller := &fakePoller{} // never yields a code
	cfg := fastConfig(t)
	c := newTestCreator(t, d, poller, cfg)

	outcome := c.CreateAccount(context.Background(), testAccount())

	assert.Equal(t, StatusFatalFailure, outcome.Status)
	assert.Equal(t, KindCodeTimeout, outcome.Kind)

	// One initial wait plus one resend round.
	assert.Equal(t, 2, poller.polls())
	assert.Equal(t, 1, d.clickCount(cfg.Site.OTPResendSelector))

	shots := d.screenshotsSnapshot()
	require.Len(t, shots, 1)
	assert.Equal(t, filepath.Join(cfg.ScreenshotDir, "error_neo77.png"), shots[0])
}

func TestCreateAccountResendUsesFixedBaseline(t *testing.T) {
	d := newScriptedDriver()
	d.url = "https://account.example.com/welcome"
	poller := &fakePoller{
		baseline: mailbox.CodeSet{"111111": {}},
		codes:    []string{"", "654321"}, // first wait times out, resend delivers
	}
	cfg := fastConfig(t)
	c := newTestCreator(t, d, poller, cfg)

	outcome := c.CreateAccount(context.Background(), testAccount())
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome)

	assert.Equal(t, 1, d.clickCount(cfg.Site.OTPResendSelector))
	require.Equal(t, 2, poller.polls())
	for _, seen := range poller.seenBaselines {
		assert.True(t, seen.Contains("111111"), "baseline must not change across resends")
	}
}

func TestCreateAccountUnverified(t *testing.T) {
	d := newScriptedDriver()
	d.url = "https://signup.example.com/almost-there"
	poller := &fakePoller{codes: []string{"123456"}}
	cfg := fastConfig(t)
	c := newTestCreator(t, d, poller, cfg)

	outcome := c.CreateAccount(context.Background(), testAccount())

	assert.Equal(t, StatusFatalFailure, outcome.Status)
	assert.Equal(t, KindUnverified, outcome.Kind)
	assert.Contains(t, outcome.Detail, "almost-there")
	assert.Len(t, d.screenshotsSnapshot(), 1)
}

func TestCreateAccountProxyFailureIsRetryable(t *testing.T) {
	d := newScriptedDriver()
	cfg := fastConfig(t)
	d.failSelect[cfg.Site.EmailInputSelector] = errors.New("net::ERR_TUNNEL_CONNECTION_FAILED")
	c := newTestCreator(t, d, &fakePoller{}, cfg)

	outcome := c.CreateAccount(context.Background(), testAccount())

	assert.Equal(t, StatusRetryableFailure, outcome.Status)
	assert.Equal(t, KindProxyConnectivity, outcome.Kind)
	assert.True(t, outcome.Retryable())
}

func TestCreateAccountSingleUse(t *testing.T) {
	d := newScriptedDriver()
	d.url = "https://account.example.com/welcome"
	cfg := fastConfig(t)
	c := newTestCreator(t, d, &fakePoller{codes: []string{"123456"}}, cfg)

	require.True(t, c.CreateAccount(context.Background(), testAccount()).Succeeded())

	second := c.CreateAccount(context.Background(), testAccount())
	assert.Equal(t, StatusFatalFailure, second.Status)
	assert.Equal(t, KindBrowser, second.Kind)
}

func TestCreateAccountScreenshotFailureIsSwallowed(t *testing.T) {
	d := newScriptedDriver()
	d.failScreenshot = errors.New("target closed")
	cfg := fastConfig(t)
	c := newTestCreator(t, d, &fakePoller{}, cfg)

	outcome := c.CreateAccount(context.Background(), testAccount())
	assert.Equal(t, KindCodeTimeout, outcome.Kind)
	assert.Empty(t, d.screenshotsSnapshot())
}
