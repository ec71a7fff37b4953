// Package portal implements the benefits-portal automation engine: login,
// section extraction, the monthly report form walk, and the orchestration
// that ties them together in a single browser session.
package portal

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Section describes one logical portal section. Path is resolved against the
// portal base URL. A section with DiscoverLabels set is located dynamically:
// anchors on the landing page are matched against the labels first, and the
// FallbackPaths are probed in order when discovery fails. The portal
// relocates Payment Info periodically, which is why that section carries the
// full discovery rule.
type Section struct {
	Name           string   `mapstructure:"name" validate:"required"`
	Path           string   `mapstructure:"path" validate:"required"`
	DiscoverFrom   string   `mapstructure:"discover_from"`
	DiscoverLabels []string `mapstructure:"discover_labels"`
	FallbackPaths  []string `mapstructure:"fallback_paths"`
}

// RadioChoice names a radio group and the answer to pick. The value match is
// tried first; LabelVocab is the text fallback for when the portal renames
// its field values.
type RadioChoice struct {
	Field      string   `mapstructure:"field"`
	Value      string   `mapstructure:"value"`
	LabelVocab []string `mapstructure:"label_vocab"`
}

// ReportConfig drives the monthly report form walker.
type ReportConfig struct {
	Path string `mapstructure:"path" validate:"required"`

	// ResumeVocab matches the landing-page control that opens an
	// in-progress report. No match is terminal: the report was likely
	// already filed.
	ResumeVocab   []string `mapstructure:"resume_vocab" validate:"min=1"`
	ContinueVocab []string `mapstructure:"continue_vocab" validate:"min=1"`
	SubmitVocab   []string `mapstructure:"submit_vocab" validate:"min=1"`

	// SuccessVocab classifies the post-submit page. No match does not
	// discard the walk; the result is marked unsuccessful but keeps its
	// captured state.
	SuccessVocab []string `mapstructure:"success_vocab" validate:"min=1"`

	// StageMarkers holds one heading fragment per stage, Eligibility
	// through Confirmation. Stages 1-5 are hash-routed, so transitions are
	// detected by polling for the next marker in the live page text.
	StageMarkers []string `mapstructure:"stage_markers" validate:"len=6"`

	// StageTimeout bounds the marker poll for each transition.
	StageTimeout time.Duration `mapstructure:"stage_timeout" validate:"gt=0"`

	Eligibility RadioChoice `mapstructure:"eligibility"`
	OtherChange RadioChoice `mapstructure:"other_change"`

	// IncomeSelectors are forced to "0" during the income declaration.
	IncomeSelectors []string `mapstructure:"income_selectors"`

	SINSelectors   []string `mapstructure:"sin_selectors"`
	PhoneSelectors []string `mapstructure:"phone_selectors"`
	PINSelectors   []string `mapstructure:"pin_selectors"`

	DeclarationSelectors []string `mapstructure:"declaration_selectors"`
	SubmitSelectors      []string `mapstructure:"submit_selectors"`
}

// Config is the engine configuration. Default returns the values for the BC
// self-service portal; everything here is injectable so tests can point the
// engine at a mocked target.
type Config struct {
	PortalURL string `mapstructure:"portal_url" validate:"required,url"`

	LoginAttempts    int           `mapstructure:"login_attempts" validate:"min=1,max=10"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff" validate:"gte=0"`

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" validate:"gt=0"`
	SelectorTimeout   time.Duration `mapstructure:"selector_timeout" validate:"gt=0"`

	// LoginURLMarkers identify the login page by URL fragment. A post-login
	// URL still matching one of these means the attempt failed; a section
	// URL matching one means the session expired.
	LoginURLMarkers  []string `mapstructure:"login_url_markers" validate:"min=1"`
	RateLimitMarkers []string `mapstructure:"rate_limit_markers" validate:"min=1"`
	NotFoundMarkers  []string `mapstructure:"not_found_markers" validate:"min=1"`

	SignInVocab []string `mapstructure:"sign_in_vocab" validate:"min=1"`

	UsernameSelectors []string `mapstructure:"username_selectors" validate:"min=1"`
	PasswordSelectors []string `mapstructure:"password_selectors" validate:"min=1"`
	SubmitSelectors   []string `mapstructure:"submit_selectors" validate:"min=1"`

	// Keywords drive the context-window scan over each section's page text.
	Keywords []string `mapstructure:"keywords" validate:"min=1"`

	Sections []Section `mapstructure:"sections" validate:"min=1,dive"`

	Report ReportConfig `mapstructure:"report"`
}

// Default returns the configuration for the BC self-service portal.
func Default() *Config {
	return &Config{
		PortalURL: "https://myselfserve.gov.bc.ca",

		LoginAttempts:    3,
		RetryDelay:       2 * time.Second,
		RateLimitBackoff: 30 * time.Second,

		NavigationTimeout: 30 * time.Second,
		SelectorTimeout:   10 * time.Second,

		LoginURLMarkers:  []string{"logon", "login"},
		RateLimitMarkers: []string{"too many", "rate limit"},
		NotFoundMarkers:  []string{"PageNotFound", "404"},

		SignInVocab: []string{"sign in", "log in"},

		UsernameSelectors: []string{
			`input[name="user"]`,
			`input[id="user"]`,
			`input[name="username"]`,
			`input[type="text"]`,
		},
		PasswordSelectors: []string{
			`input[name="password"]`,
			`input[id="password"]`,
			`input[type="password"]`,
		},
		SubmitSelectors: []string{
			`input[name="btnSubmit"]`,
			`button[type="submit"]`,
			`input[type="submit"]`,
		},

		Keywords: []string{
			"payment", "paid", "pending", "processed", "deposit", "amount",
			"balance", "invoice", "status", "notification", "message",
		},

		Sections: []Section{
			{Name: "Notifications", Path: "/Auth"},
			{Name: "Messages", Path: "/Auth/Messages"},
			{
				Name:           "Payment Info",
				Path:           "/Auth/ChequeInfo",
				DiscoverFrom:   "/Auth",
				DiscoverLabels: []string{"payment", "cheque"},
				FallbackPaths: []string{
					"/Auth/ChequeInfo",
					"/Auth/Payment",
					"/Auth/Payments",
					"/Payment",
					"/PaymentInfo",
				},
			},
			{Name: "Service Requests", Path: "/Auth/ServiceRequests"},
		},

		Report: ReportConfig{
			Path: "/Auth/MonthlyReport",

			ResumeVocab:   []string{"resume", "start", "begin"},
			ContinueVocab: []string{"continue", "next"},
			SubmitVocab:   []string{"submit"},
			SuccessVocab:  []string{"submit", "confirm", "success", "thank you", "received"},

			StageMarkers: []string{
				"eligibility",
				"income",
				"other declarations",
				"supporting documents",
				"personal information",
				"confirmation",
			},
			StageTimeout: 8 * time.Second,

			Eligibility: RadioChoice{
				Field:      "needsAssistance",
				Value:      "yes",
				LabelVocab: []string{"yes"},
			},
			OtherChange: RadioChoice{
				Field:      "otherChanges",
				Value:      "no",
				LabelVocab: []string{"no"},
			},

			IncomeSelectors: []string{
				`input[name="employmentIncome"]`,
				`input[name="selfEmploymentIncome"]`,
				`input[name="otherIncome"]`,
			},

			SINSelectors:   []string{`input[name="sin"]`, `input[id="sin"]`},
			PhoneSelectors: []string{`input[name="phone"]`, `input[id="phone"]`, `input[type="tel"]`},
			PINSelectors:   []string{`input[name="pin"]`, `input[id="pin"]`, `input[type="password"]`},

			DeclarationSelectors: []string{
				`input[name="declaration"]`,
				`input[id="declaration"]`,
				`input[type="checkbox"]`,
			},
			SubmitSelectors: []string{
				`button[type="submit"]`,
				`input[type="submit"]`,
			},
		},
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid portal config: %w", err)
	}
	return nil
}

// ResolveURL joins a section or report path with the portal base URL.
// Absolute URLs pass through untouched.
func (c *Config) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.PortalURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// containsAny reports whether s contains any of the needles,
// case-insensitively.
func containsAny(s string, needles []string) bool {
	return matchAny(s, needles) != ""
}

// matchAny returns the first needle contained in s, case-insensitively, or
// "" when none match.
func matchAny(s string, needles []string) string {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return n
		}
	}
	return ""
}
