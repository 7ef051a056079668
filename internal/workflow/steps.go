package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voidmaw/regflow/internal/browser"
)

// Per-digit cadence for code entry. The first digits are slower while the
// eyes move between the email and the form.
const (
	otpDigitDelayMin      = 120 * time.Millisecond
	otpDigitDelayMax      = 280 * time.Millisecond
	otpFirstDigitExtraMin = 50 * time.Millisecond
	otpFirstDigitExtraMax = 120 * time.Millisecond
)

// navigateToSignup drives from the search engine to the signup form: search
// for the account page, follow the result, then follow the create-account
// link.
func (c *Creator) navigateToSignup(ctx context.Context) error {
	site := c.cfg.Site
	if err := c.driver.Navigate(ctx, site.StartURL); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandPage); err != nil {
		return err
	}
	c.input.EnsureCursorOverlay(ctx)

	searchInput, err := c.driver.Select(ctx, site.SearchInputSelector)
	if err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}
	if err := c.input.TypeInto(ctx, searchInput, site.SearchQuery, browser.ProfileNormal); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}

	searchBtn, err := c.driver.Find(ctx, site.SearchButtonText)
	if err != nil {
		return err
	}
	if err := c.pausedClick(ctx, searchBtn, browser.BandAction, browser.BandPage); err != nil {
		return err
	}
	c.input.EnsureCursorOverlay(ctx)

	if err := c.input.Pause(ctx, browser.BandThinking); err != nil {
		return err
	}
	signupLink, err := c.driver.Find(ctx, site.SignupLinkText)
	if err != nil {
		return err
	}
	if err := c.pausedClick(ctx, signupLink, browser.BandAction, browser.BandPage); err != nil {
		return err
	}
	c.input.EnsureCursorOverlay(ctx)

	if err := c.input.Pause(ctx, browser.BandThinking); err != nil {
		return err
	}
	createLink, err := c.driver.Find(ctx, site.CreateLinkText)
	if err != nil {
		return err
	}
	if err := c.pausedClick(ctx, createLink, browser.BandAction, browser.BandPage); err != nil {
		return err
	}
	c.input.EnsureCursorOverlay(ctx)
	return nil
}

// enterEmail types the address into the email field.
func (c *Creator) enterEmail(ctx context.Context, email string) error {
	return c.typeField(ctx, c.cfg.Site.EmailInputSelector, email, browser.ProfileNormal)
}

// clearMarketingOptIns unchecks any pre-ticked marketing boxes. Boxes that
// are absent or fail to read are skipped; opting out is best-effort.
func (c *Creator) clearMarketingOptIns(ctx context.Context) {
	for _, selector := range c.cfg.Site.MarketingSelectors {
		box, err := c.driver.Select(ctx, selector)
		if err != nil {
			continue
		}
		var checked bool
		script := fmt.Sprintf("document.querySelector(%q).checked", selector)
		if err := c.driver.Evaluate(ctx, script, &checked); err != nil || !checked {
			continue
		}
		if err := c.input.Pause(ctx, browser.BandShort); err != nil {
			return
		}
		if err := c.input.Click(ctx, box); err != nil {
			continue
		}
		if err := c.input.Pause(ctx, browser.BandMicro); err != nil {
			return
		}
	}
}

// submitStage clicks the stage's submit button and waits out the page load.
func (c *Creator) submitStage(ctx context.Context) error {
	btn, err := c.driver.Select(ctx, c.cfg.Site.SubmitSelector)
	if err != nil {
		return err
	}
	return c.pausedClick(ctx, btn, browser.BandAction, browser.BandPage)
}

// enterCode validates then types the verification code digit by digit into
// the per-digit inputs.
func (c *Creator) enterCode(ctx context.Context, code string) error {
	if err := validateOTP(code); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}
	for i, digit := range code {
		field, err := c.driver.Select(ctx, fmt.Sprintf(c.cfg.Site.OTPDigitSelector, i+1))
		if err != nil {
			return err
		}
		if err := c.driver.SendKeys(ctx, field, string(digit)); err != nil {
			return err
		}
		min, max := otpDigitDelayMin, otpDigitDelayMax
		if i < 2 {
			min += otpFirstDigitExtraMin
			max += otpFirstDigitExtraMax
		}
		if err := c.input.SleepRange(ctx, min, max); err != nil {
			return err
		}
	}
	return c.input.Pause(ctx, browser.BandShort)
}

// submitCode confirms the entered verification code.
func (c *Creator) submitCode(ctx context.Context) error {
	btn, err := c.driver.Select(ctx, c.cfg.Site.OTPSubmitSelector)
	if err != nil {
		return err
	}
	return c.pausedClick(ctx, btn, browser.BandAction, browser.BandPage)
}

// resendCode asks the form to send a fresh verification code.
func (c *Creator) resendCode(ctx context.Context) error {
	btn, err := c.driver.Select(ctx, c.cfg.Site.OTPResendSelector)
	if err != nil {
		return err
	}
	return c.pausedClick(ctx, btn, browser.BandAction, browser.BandThinking)
}

// enterBirthdate fills the three date components, fast profile; short
// numeric fields invite quick typing.
func (c *Creator) enterBirthdate(ctx context.Context, birthdate string) error {
	month, day, year, err := splitBirthdate(birthdate)
	if err != nil {
		return err
	}
	site := c.cfg.Site
	fields := []struct{ selector, value string }{
		{site.BirthMonthSelector, month},
		{site.BirthDaySelector, day},
		{site.BirthYearSelector, year},
	}
	for _, f := range fields {
		if err := c.typeField(ctx, f.selector, f.value, browser.ProfileFast); err != nil {
			return err
		}
	}
	return nil
}

// enterUsername fills the username field.
func (c *Creator) enterUsername(ctx context.Context, username string) error {
	return c.typeField(ctx, c.cfg.Site.UsernameSelector, username, browser.ProfileNormal)
}

// enterPassword fills the password and its confirmation, slow profile; people
// type passwords carefully.
func (c *Creator) enterPassword(ctx context.Context, password string) error {
	site := c.cfg.Site
	for _, selector := range []string{site.PasswordSelector, site.PasswordConfirmSelector} {
		if err := c.typeField(ctx, selector, password, browser.ProfileSlow); err != nil {
			return err
		}
	}
	return nil
}

// acceptTerms scrolls through the terms area, ticks the checkbox and accepts.
// Scrolling to the bottom first matters: some forms disable the checkbox
// until the text has been scrolled.
func (c *Creator) acceptTerms(ctx context.Context) error {
	site := c.cfg.Site
	area, err := c.driver.Select(ctx, site.TermsAreaSelector)
	if err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}
	if err := c.input.Click(ctx, area); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandThinking); err != nil {
		return err
	}
	scroll := fmt.Sprintf("(function(){const el=document.querySelector(%q);if(el){el.scrollTop=el.scrollHeight}})()", site.TermsAreaSelector)
	if err := c.driver.Evaluate(ctx, scroll, nil); err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}

	checkbox, err := c.driver.Select(ctx, site.TermsCheckboxSelector)
	if err != nil {
		return err
	}
	if err := c.pausedClick(ctx, checkbox, browser.BandAction, browser.BandShort); err != nil {
		return err
	}

	accept, err := c.driver.Select(ctx, site.TermsAcceptSelector)
	if err != nil {
		return err
	}
	return c.pausedClick(ctx, accept, browser.BandAction, browser.BandPage)
}

// verifyCreated waits out the settle period for redirects, then checks the
// final location for the account-domain marker. It returns the location for
// diagnostics.
func (c *Creator) verifyCreated(ctx context.Context) (verified bool, location string, err error) {
	if err := sleepCtx(ctx, c.cfg.SettleWait); err != nil {
		return false, "", err
	}
	location, err = c.driver.CurrentURL(ctx)
	if err != nil {
		return false, "", err
	}
	return strings.Contains(location, c.cfg.Site.VerifiedURLSubstring), location, nil
}

// typeField selects a field, pauses, types with the given cadence and pauses
// again; the common shape of every free-text stage.
func (c *Creator) typeField(ctx context.Context, selector, value string, profile browser.SpeedProfile) error {
	field, err := c.driver.Select(ctx, selector)
	if err != nil {
		return err
	}
	if err := c.input.Pause(ctx, browser.BandShort); err != nil {
		return err
	}
	if err := c.input.TypeInto(ctx, field, value, profile); err != nil {
		return err
	}
	return c.input.Pause(ctx, browser.BandShort)
}

// pausedClick pauses before and after a humanlike click; the before band
// models aiming, the after band models the reaction to the result.
func (c *Creator) pausedClick(ctx context.Context, el browser.ElementHandle, before, after browser.Band) error {
	if err := c.input.Pause(ctx, before); err != nil {
		return err
	}
	if err := c.input.Click(ctx, el); err != nil {
		return err
	}
	return c.input.Pause(ctx, after)
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
