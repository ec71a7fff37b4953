package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/nulljosh/claimcheck/internal/browser"
	"github.com/nulljosh/claimcheck/internal/logger"
)

// Walker drives the monthly report form: a strictly linear six-stage flow.
// Stages one through five are hash-routed, so transitions are detected by
// polling the live page text for the next stage's heading; the final
// transition into the confirmation page is a real navigation.
type Walker struct {
	nav   Navigator
	cfg   *Config
	shots ScreenshotSink
}

func NewWalker(nav Navigator, cfg *Config, shots ScreenshotSink) *Walker {
	return &Walker{nav: nav, cfg: cfg, shots: shots}
}

// Walk resumes the in-progress report and fills every stage. With
// opts.DryRun set it stops on the confirmation page, after the field
// snapshot but before the submit click. Errors are captured in the result;
// Walk never fails past its own boundary.
func (w *Walker) Walk(ctx context.Context, opts ReportOptions) *SubmissionResult {
	res := &SubmissionResult{DryRun: opts.DryRun}
	rc := &w.cfg.Report

	if err := w.nav.Goto(ctx, w.cfg.ResolveURL(rc.Path), w.cfg.NavigationTimeout); err != nil {
		res.Error = err.Error()
		return res
	}

	matched, err := w.nav.ClickByText(ctx, rc.ResumeVocab)
	if err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			res.Error = ErrReportNotAvailable.Error()
		} else {
			res.Error = err.Error()
		}
		return res
	}
	logger.Debug("opened monthly report", "control", matched)

	if err := w.awaitStage(ctx, StageEligibility); err != nil {
		res.Error = err.Error()
		return res
	}

	for stage := StageEligibility; stage <= StageConfirmation; stage++ {
		res.Stage = stage.String()
		w.snapshot(ctx, res, stage)

		if err := w.fillStage(ctx, stage, opts); err != nil {
			res.Error = fmt.Sprintf("stage %s: %v", stage, err)
			return res
		}
		if stage == StageConfirmation {
			break
		}
		if err := w.advance(ctx, stage); err != nil {
			res.Error = err.Error()
			return res
		}
	}

	return w.finish(ctx, res, opts)
}

// fillStage applies the per-stage edits. Supporting documents is a
// screenshot-only stage; personal info only overwrites fields the caller
// supplied values for, since the portal pre-populates them.
func (w *Walker) fillStage(ctx context.Context, stage Stage, opts ReportOptions) error {
	rc := &w.cfg.Report
	switch stage {
	case StageEligibility:
		return w.chooseRadio(ctx, rc.Eligibility)

	case StageIncomeDeclaration:
		for _, sel := range rc.IncomeSelectors {
			err := w.nav.SetFieldValue(ctx, sel, "0")
			if errors.Is(err, browser.ErrElementNotFound) {
				logger.Debug("income field absent this period", "selector", sel)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil

	case StageOtherDeclarations:
		return w.chooseRadio(ctx, rc.OtherChange)

	case StageSupportingDocuments:
		return nil

	case StagePersonalInfo:
		if opts.SIN != "" {
			if err := w.setFirst(ctx, rc.SINSelectors, opts.SIN); err != nil {
				return fmt.Errorf("sin field: %w", err)
			}
		}
		if opts.Phone != "" {
			if err := w.setFirst(ctx, rc.PhoneSelectors, opts.Phone); err != nil {
				return fmt.Errorf("phone field: %w", err)
			}
		}
		return nil

	case StageConfirmation:
		if err := w.nav.CheckBox(ctx, rc.DeclarationSelectors); err != nil {
			return fmt.Errorf("declaration checkbox: %w", err)
		}
		if opts.PIN != "" {
			if err := w.setFirst(ctx, rc.PINSelectors, opts.PIN); err != nil {
				return fmt.Errorf("pin field: %w", err)
			}
		}
		return nil
	}
	return nil
}

// advance clicks Continue and waits for the next stage. Every transition
// except personal-info to confirmation is hash-routed.
func (w *Walker) advance(ctx context.Context, stage Stage) error {
	rc := &w.cfg.Report

	var fromURL string
	if stage == StagePersonalInfo {
		st, err := w.nav.State(ctx)
		if err != nil {
			return err
		}
		fromURL = st.URL
	}

	if _, err := w.nav.ClickByText(ctx, rc.ContinueVocab); err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			return fmt.Errorf("no continue control on %s: %w", stage, ErrFormStageNotFound)
		}
		return err
	}

	if stage == StagePersonalInfo {
		if err := w.nav.WaitForNavigation(ctx, fromURL, w.cfg.NavigationTimeout); err != nil {
			return fmt.Errorf("transition to %s: %w", stage+1, ErrFormStageNotFound)
		}
	}
	return w.awaitStage(ctx, stage+1)
}

// awaitStage polls for the stage's heading marker. A missing marker is a
// transition failure; the walker never proceeds on the assumption that the
// page advanced.
func (w *Walker) awaitStage(ctx context.Context, stage Stage) error {
	marker := w.cfg.Report.StageMarkers[int(stage)]
	err := w.nav.WaitForCondition(ctx, w.cfg.Report.StageTimeout, func(st browser.PageState) bool {
		return containsAny(st.BodyText, []string{marker})
	})
	if err != nil {
		return fmt.Errorf("no %q marker for stage %s: %w", marker, stage, ErrFormStageNotFound)
	}
	return nil
}

// finish snapshots the confirmation form, then either stops (dry run) or
// submits and classifies the outcome.
func (w *Walker) finish(ctx context.Context, res *SubmissionResult, opts ReportOptions) *SubmissionResult {
	rc := &w.cfg.Report

	fields, err := w.nav.FormFields(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.PreSubmitState = fields

	if opts.DryRun {
		res.Success = true
		res.Message = "dry run: stopped before submit"
		return res
	}

	if err := w.clickSubmit(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	// Classify from the resulting page text. An ambiguous outcome is
	// reported unsuccessful but keeps everything captured so far.
	_ = w.nav.WaitForCondition(ctx, w.cfg.NavigationTimeout, func(st browser.PageState) bool {
		return containsAny(st.BodyText, rc.SuccessVocab)
	})
	st, err := w.nav.State(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Stage = StageSubmitted.String()
	w.snapshot(ctx, res, StageSubmitted)
	if hit := matchAny(st.BodyText, rc.SuccessVocab); hit != "" {
		res.Success = true
		res.Message = fmt.Sprintf("submission confirmed (%q)", hit)
		res.Confirmation = clean(st.BodyText)
	} else {
		res.Success = false
		res.Message = "submission outcome ambiguous: no confirmation marker on result page"
		res.Confirmation = clean(st.BodyText)
	}
	return res
}

func (w *Walker) clickSubmit(ctx context.Context) error {
	for _, sel := range w.cfg.Report.SubmitSelectors {
		err := w.nav.ClickSelector(ctx, sel, w.cfg.SelectorTimeout)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrElementNotFound) {
			return err
		}
	}
	if _, err := w.nav.ClickByText(ctx, w.cfg.Report.SubmitVocab); err != nil {
		return fmt.Errorf("submit control: %w", ErrFormStageNotFound)
	}
	return nil
}

// chooseRadio picks the configured answer, falling back to the first radio
// group on the page when the named field is absent. The portal's field
// identifiers are not stable across redesigns.
func (w *Walker) chooseRadio(ctx context.Context, choice RadioChoice) error {
	how, err := w.nav.ChooseRadio(ctx, choice.Field, choice.Value, choice.LabelVocab)
	if err == nil {
		logger.Debug("radio selected", "field", choice.Field, "via", how)
		return nil
	}
	if !errors.Is(err, browser.ErrElementNotFound) {
		return err
	}

	fields, ferr := w.nav.FormFields(ctx)
	if ferr != nil {
		return ferr
	}
	for _, f := range fields {
		if f.Type == "radio" && f.Name != "" && f.Name != choice.Field {
			how, err = w.nav.ChooseRadio(ctx, f.Name, choice.Value, choice.LabelVocab)
			if err == nil {
				logger.Debug("radio selected via fallback group", "field", f.Name, "via", how)
				return nil
			}
		}
	}
	return fmt.Errorf("radio group %q: %w", choice.Field, ErrFormStageNotFound)
}

// setFirst sets the first field matched by any selector.
func (w *Walker) setFirst(ctx context.Context, selectors []string, value string) error {
	for _, sel := range selectors {
		err := w.nav.SetFieldValue(ctx, sel, value)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrElementNotFound) {
			return err
		}
	}
	return browser.ErrElementNotFound
}

func (w *Walker) snapshot(ctx context.Context, res *SubmissionResult, stage Stage) {
	if ref := capture(ctx, w.nav, w.shots, "report-"+stage.String()); ref != "" {
		res.Screenshots = append(res.Screenshots, ref)
	}
}
