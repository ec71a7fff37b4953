package portal

import (
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
)

// Credentials are the portal login pair. They are held only for the duration
// of one run and must never appear in logs or results.
type Credentials struct {
	Username string `json:"-" validate:"required"`
	Password string `json:"-" validate:"required"`
}

// SectionResult is the outcome of extracting one portal section. Exactly one
// of the success fields or Error is populated.
type SectionResult struct {
	Success    bool     `json:"success"`
	PageTitle  string   `json:"pageTitle,omitempty"`
	URL        string   `json:"url,omitempty"`
	AllText    []string `json:"allText,omitempty"`
	TableData  []string `json:"tableData,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Screenshot string   `json:"screenshot,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// AggregateResult is the artifact of one full check run. Success reports
// whether the run itself completed; individual sections may still carry
// errors, which is how callers distinguish "some sections failed" from
// "entire run failed".
type AggregateResult struct {
	Success   bool                      `json:"success"`
	Timestamp time.Time                 `json:"timestamp"`
	Sections  map[string]*SectionResult `json:"sections,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// Failed returns a run-level failure result.
func Failed(err error) *AggregateResult {
	return &AggregateResult{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
	}
}

// Stage is one page of the monthly report form. Stages are strictly linear;
// the walker never skips forward or revisits an earlier stage.
type Stage int

const (
	StageEligibility Stage = iota
	StageIncomeDeclaration
	StageOtherDeclarations
	StageSupportingDocuments
	StagePersonalInfo
	StageConfirmation
	StageSubmitted
)

var stageNames = [...]string{
	"eligibility",
	"income-declaration",
	"other-declarations",
	"supporting-documents",
	"personal-info",
	"confirmation",
	"submitted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// ReportOptions control a monthly report walk. Empty SIN/Phone mean "leave
// the portal's pre-populated value alone".
type ReportOptions struct {
	DryRun bool   `json:"dryRun"`
	SIN    string `json:"-"`
	Phone  string `json:"-"`
	PIN    string `json:"-"`
}

// SubmissionResult is the outcome of a monthly report walk. PreSubmitState
// captures every form field as filled on the confirmation page, so a dry run
// (or an ambiguous submit) remains inspectable.
type SubmissionResult struct {
	Success        bool                `json:"success"`
	DryRun         bool                `json:"dryRun"`
	Stage          string              `json:"stage,omitempty"`
	Message        string              `json:"message,omitempty"`
	Confirmation   string              `json:"confirmation,omitempty"`
	PreSubmitState []browser.FormField `json:"preSubmitState,omitempty"`
	Screenshots    []string            `json:"screenshots,omitempty"`
	Error          string              `json:"error,omitempty"`
}
