package workflow

import "time"

// SiteConfig locates the signup form's elements. Selectors are configuration
// because the target form's markup changes more often than this code.
type SiteConfig struct {
	// StartURL is the search engine the navigation stage begins from;
	// arriving via organic search looks less scripted than a direct hit.
	StartURL            string
	SearchInputSelector string
	SearchQuery         string
	SearchButtonText    string
	// SignupLinkText and CreateLinkText are the visible-text links followed
	// from the search results to the signup form.
	SignupLinkText string
	CreateLinkText string

	EmailInputSelector string
	SubmitSelector     string
	// MarketingSelectors are pre-checked opt-in boxes to clear before
	// submitting the email stage. Missing boxes are skipped silently.
	MarketingSelectors []string

	// OTPDigitSelector is a format string with one %d placeholder for the
	// 1-based digit position.
	OTPDigitSelector  string
	OTPSubmitSelector string
	OTPResendSelector string

	BirthMonthSelector string
	BirthDaySelector   string
	BirthYearSelector  string

	UsernameSelector        string
	PasswordSelector        string
	PasswordConfirmSelector string

	TermsAreaSelector     string
	TermsCheckboxSelector string
	TermsAcceptSelector   string

	// VerifiedURLSubstring confirms success when present in the final page
	// location after the settle wait.
	VerifiedURLSubstring string
}

// DefaultSite returns the selector set for the currently targeted signup form.
func DefaultSite() SiteConfig {
	return SiteConfig{
		StartURL:            "https://www.google.com/",
		SearchInputSelector: "#APjFqb",
		SearchQuery:         "create account",
		SearchButtonText:    "Google Search",
		SignupLinkText:      "Create an Account",
		CreateLinkText:      "Create account",

		EmailInputSelector: "[data-testid='signup-email']",
		SubmitSelector:     "[data-testid='btn-signup-submit']",
		MarketingSelectors: []string{"#newsletter", "#thirdpartycomms"},

		OTPDigitSelector:  "[data-testid='otp-input'] div:nth-of-type(%d) > input",
		OTPSubmitSelector: "[data-testid='btn-otp-submit']",
		OTPResendSelector: "[data-testid='otp-resend']",

		BirthMonthSelector: "[data-testid='signup-birthdate-month']",
		BirthDaySelector:   "[data-testid='signup-birthdate-day']",
		BirthYearSelector:  "[data-testid='signup-birthdate-year']",

		UsernameSelector:        "[data-testid='signup-username']",
		PasswordSelector:        "[data-testid='input-password']",
		PasswordConfirmSelector: "[data-testid='password-confirm']",

		TermsAreaSelector:     "#tos-scrollable-area",
		TermsCheckboxSelector: "#tos-checkbox",
		TermsAcceptSelector:   "[data-testid='btn-accept-tos']",

		VerifiedURLSubstring: "account.",
	}
}

// Config tunes one workflow instance.
type Config struct {
	Site SiteConfig
	// MaxOTPRetries is the number of resend attempts after the first wait.
	MaxOTPRetries int
	// CodeWaitTimeout bounds each individual wait for a fresh code.
	CodeWaitTimeout time.Duration
	// SettleWait lets post-signup redirects finish before verification.
	SettleWait time.Duration
	// ScreenshotDir receives failure screenshots keyed by account identity.
	ScreenshotDir string
}

// DefaultConfig mirrors the production pacing.
func DefaultConfig() Config {
	return Config{
		Site:            DefaultSite(),
		MaxOTPRetries:   3,
		CodeWaitTimeout: 20 * time.Second,
		SettleWait:      10 * time.Second,
		ScreenshotDir:   ".",
	}
}
