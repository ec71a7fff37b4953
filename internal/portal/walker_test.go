package portal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
)

// walkerFake scripts the monthly report flow: resume opens the first stage,
// each continue advances the hash-routed page text to the next stage
// marker, the final transition changes the URL, and submit lands on the
// scripted result page.
type walkerFake struct {
	baseNav
	cfg *Config

	resume     bool
	stuckAfter int // stage index where continue stops advancing; -1 for never
	stage      int // -1 before resume
	maxStage   int

	values    map[string]string
	radios    map[string]string
	checked   bool
	submitted bool
	postBody  string
}

func newWalkerFake(cfg *Config) *walkerFake {
	return &walkerFake{
		cfg:        cfg,
		resume:     true,
		stuckAfter: -1,
		stage:      -1,
		values:     make(map[string]string),
		radios:     make(map[string]string),
		postBody:   "Thank you. Your report has been received.",
	}
}

func (f *walkerFake) setStage(i int) {
	f.stage = i
	if i > f.maxStage {
		f.maxStage = i
	}
	f.st.BodyText = "Step heading: " + f.cfg.Report.StageMarkers[i]
	if Stage(i) == StageConfirmation {
		// The portal does a real navigation into the confirmation page.
		f.st.URL = "https://portal.test/Auth/MonthlyReport/Confirm"
	}
}

func (f *walkerFake) Goto(ctx context.Context, url string, timeout time.Duration) error {
	f.st = browser.PageState{URL: url, BodyText: "Monthly report landing"}
	return nil
}

func (f *walkerFake) ClickByText(ctx context.Context, vocab []string) (string, error) {
	switch {
	case vocabHas(vocab, "resume"):
		if !f.resume {
			return "", browser.ErrElementNotFound
		}
		f.setStage(0)
		return "resume", nil
	case vocabHas(vocab, "continue"):
		if f.stage != f.stuckAfter {
			f.setStage(f.stage + 1)
		}
		return "continue", nil
	case vocabHas(vocab, "submit"):
		f.doSubmit()
		return "submit", nil
	}
	return "", browser.ErrElementNotFound
}

func (f *walkerFake) ClickSelector(ctx context.Context, sel string, timeout time.Duration) error {
	if strings.Contains(sel, "submit") {
		f.doSubmit()
		return nil
	}
	return browser.ErrElementNotFound
}

func (f *walkerFake) doSubmit() {
	f.submitted = true
	f.st = browser.PageState{
		URL:      "https://portal.test/Auth/MonthlyReport/Done",
		BodyText: f.postBody,
	}
}

func (f *walkerFake) SetFieldValue(ctx context.Context, sel, value string) error {
	f.values[sel] = value
	return nil
}

func (f *walkerFake) ChooseRadio(ctx context.Context, field, value string, labelVocab []string) (string, error) {
	f.radios[field] = value
	return "value=" + value, nil
}

func (f *walkerFake) CheckBox(ctx context.Context, selectors []string) error {
	f.checked = true
	return nil
}

func (f *walkerFake) FormFields(ctx context.Context) ([]browser.FormField, error) {
	var out []browser.FormField
	for sel, v := range f.values {
		out = append(out, browser.FormField{Name: nameFromSelector(sel), Type: "text", Value: v})
	}
	if f.checked {
		out = append(out, browser.FormField{Name: "declaration", Type: "checkbox", Checked: true})
	}
	sortFields(out)
	return out, nil
}

func fieldByName(fields []browser.FormField, name string) (browser.FormField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return browser.FormField{}, false
}

func TestWalk_DryRunNeverSubmits(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{
		DryRun: true,
		SIN:    "123456789",
		Phone:  "2505550000",
		PIN:    "9876",
	})

	if res.Error != "" {
		t.Fatalf("Walk() error = %q", res.Error)
	}
	if fake.submitted {
		t.Fatal("dry run must never click the submit control")
	}
	if !res.Success || !res.DryRun {
		t.Errorf("result = success:%v dryRun:%v, want both true", res.Success, res.DryRun)
	}
	if res.Stage != StageConfirmation.String() {
		t.Errorf("Stage = %q, want %q", res.Stage, StageConfirmation)
	}

	sin, ok := fieldByName(res.PreSubmitState, "sin")
	if !ok || sin.Value != "123456789" {
		t.Errorf("preSubmitState sin = %+v, want value 123456789", sin)
	}
	pin, ok := fieldByName(res.PreSubmitState, "pin")
	if !ok || pin.Value != "9876" {
		t.Errorf("preSubmitState pin = %+v, want value 9876", pin)
	}
	decl, ok := fieldByName(res.PreSubmitState, "declaration")
	if !ok || !decl.Checked {
		t.Errorf("preSubmitState declaration = %+v, want checked", decl)
	}
	for _, sel := range cfg.Report.IncomeSelectors {
		if fake.values[sel] != "0" {
			t.Errorf("income field %s = %q, want forced to 0", sel, fake.values[sel])
		}
	}
}

func TestWalk_ReportNotAvailable(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	fake.resume = false
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{DryRun: true})
	if res.Success {
		t.Fatal("missing resume control must not succeed")
	}
	if res.Error != ErrReportNotAvailable.Error() {
		t.Errorf("Error = %q, want %q", res.Error, ErrReportNotAvailable.Error())
	}
}

func TestWalk_MissingStageMarkerStopsWalk(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	fake.stuckAfter = int(StageIncomeDeclaration)
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{DryRun: true})
	if res.Success {
		t.Fatal("a missing stage marker must fail the walk, not be skipped")
	}
	if !strings.Contains(res.Error, ErrFormStageNotFound.Error()) {
		t.Errorf("Error = %q, want a form-stage-not-found failure", res.Error)
	}
	if res.Stage != StageIncomeDeclaration.String() {
		t.Errorf("Stage = %q, want the stalled stage %q", res.Stage, StageIncomeDeclaration)
	}
	if fake.maxStage > int(StageIncomeDeclaration) {
		t.Errorf("walker advanced past the stalled stage to %d", fake.maxStage)
	}
	if fake.submitted {
		t.Error("stalled walk must not reach submit")
	}
}

func TestWalk_SubmitClassifiedByResultPage(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{PIN: "9876"})
	if !fake.submitted {
		t.Fatal("non-dry run must click submit")
	}
	if !res.Success {
		t.Fatalf("Walk() = %+v, want success on confirmation page", res)
	}
	if res.Stage != StageSubmitted.String() {
		t.Errorf("Stage = %q, want %q", res.Stage, StageSubmitted)
	}
	if res.Confirmation == "" {
		t.Error("confirmation text must be captured")
	}
}

func TestWalk_AmbiguousSubmitKeepsCapturedState(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	fake.postBody = "An unexpected error occurred."
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{PIN: "9876"})
	if res.Success {
		t.Fatal("ambiguous result page must not classify as success")
	}
	if len(res.PreSubmitState) == 0 {
		t.Error("ambiguous outcome must keep the pre-submit snapshot")
	}
	if res.Confirmation == "" {
		t.Error("ambiguous outcome must keep the result-page text")
	}
}

func TestWalk_PersonalInfoLeftAloneWithoutOverrides(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	w := NewWalker(fake, cfg, nil)

	res := w.Walk(context.Background(), ReportOptions{DryRun: true})
	if res.Error != "" {
		t.Fatalf("Walk() error = %q", res.Error)
	}
	for sel := range fake.values {
		name := nameFromSelector(sel)
		if name == "sin" || name == "phone" {
			t.Errorf("pre-populated field %q was overwritten without an override", name)
		}
	}
}

func TestWalk_EligibilityAndOtherDeclarationsAnswered(t *testing.T) {
	cfg := testConfig()
	fake := newWalkerFake(cfg)
	w := NewWalker(fake, cfg, nil)

	if res := w.Walk(context.Background(), ReportOptions{DryRun: true}); res.Error != "" {
		t.Fatalf("Walk() error = %q", res.Error)
	}
	if got := fake.radios[cfg.Report.Eligibility.Field]; got != "yes" {
		t.Errorf("eligibility answer = %q, want yes", got)
	}
	if got := fake.radios[cfg.Report.OtherChange.Field]; got != "no" {
		t.Errorf("other-changes answer = %q, want no", got)
	}
}
