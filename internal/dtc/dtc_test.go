package dtc

import "testing"

// strongAnswers describes a long-standing, well-documented impairment in BC.
func strongAnswers() Answers {
	return Answers{
		HasDiagnosis:    "yes",
		Conditions:      []string{"autism"},
		TwelveMonths:    "yes",
		Province:        "BC",
		DailyImpact:     "yes",
		Activities:      []string{"walking", "dressing", "memory", "speaking"},
		TimeTaken:       "always",
		NeedsHelp:       "always",
		TaxesFiled:      "yes",
		PaidTaxes:       "yes",
		DiagnosisTiming: "childhood",
	}
}

func TestScreen_StrongCase(t *testing.T) {
	res := Screen(strongAnswers())

	if res.DTC.Score != 100 {
		t.Errorf("DTC score = %d, want clamped 100", res.DTC.Score)
	}
	if res.DTC.Eligibility != "Likely" {
		t.Errorf("DTC eligibility = %q, want Likely", res.DTC.Eligibility)
	}
	if res.DTC.RetroYears != 10 {
		t.Errorf("retro years = %d, want 10", res.DTC.RetroYears)
	}
	if res.DTC.EstimatedRefund.Min != 15000 {
		t.Errorf("min refund = %d, want 15000", res.DTC.EstimatedRefund.Min)
	}
	if res.DTC.EstimatedRefund.Max != 25000 {
		t.Errorf("max refund = %d, want childhood cap of 25000", res.DTC.EstimatedRefund.Max)
	}
	if res.PWD.Eligibility != "Likely" {
		t.Errorf("PWD eligibility = %q, want Likely", res.PWD.Eligibility)
	}
	if res.PWD.MonthlyIncrease != "$423.50/mo" {
		t.Errorf("PWD monthly increase = %q", res.PWD.MonthlyIncrease)
	}
}

func TestScreen_ShortDurationIsDisqualifying(t *testing.T) {
	a := strongAnswers()
	a.TwelveMonths = "no"
	res := Screen(a)

	if res.DTC.Score >= 70 {
		t.Errorf("DTC score = %d; a sub-12-month impairment must not score Likely", res.DTC.Score)
	}
	var warned bool
	for _, f := range res.Flags {
		if f.Type == "warning" {
			warned = true
		}
	}
	if !warned {
		t.Error("short duration must produce a warning flag")
	}
}

func TestScreen_NoAnswersScoresZero(t *testing.T) {
	res := Screen(Answers{})

	if res.DTC.Score != 0 {
		t.Errorf("DTC score = %d, want clamped 0", res.DTC.Score)
	}
	if res.DTC.Eligibility != "No" {
		t.Errorf("eligibility = %q, want No", res.DTC.Eligibility)
	}
	if res.DTC.EstimatedRefund.Max != 0 {
		t.Errorf("refund max = %d, want 0", res.DTC.EstimatedRefund.Max)
	}
	if res.PWD.Eligibility != "N/A (BC only)" {
		t.Errorf("PWD eligibility = %q outside BC", res.PWD.Eligibility)
	}
}

func TestScreen_NoRefundWithoutTaxesPaid(t *testing.T) {
	a := strongAnswers()
	a.PaidTaxes = "no"
	res := Screen(a)
	if res.DTC.EstimatedRefund.Min != 0 || res.DTC.EstimatedRefund.Max != 0 {
		t.Errorf("refund = %+v, want zero without taxes paid", res.DTC.EstimatedRefund)
	}
}

func TestScreen_ProgramsAndSteps(t *testing.T) {
	res := Screen(strongAnswers())

	if len(res.Programs) == 0 || res.Programs[0].Name != "Disability Tax Credit (T2201)" {
		t.Fatalf("DTC program must lead the list, got %+v", res.Programs)
	}
	var rdsp bool
	for _, p := range res.Programs {
		if p.Name == "RDSP" {
			rdsp = true
		}
	}
	if !rdsp {
		t.Error("high DTC score without an RDSP must suggest RDSP")
	}

	for i := 1; i < len(res.NextSteps); i++ {
		if res.NextSteps[i-1].Priority > res.NextSteps[i].Priority {
			t.Fatalf("next steps not sorted by priority: %+v", res.NextSteps)
		}
	}
}

func TestScreen_ExistingSupportsSuppressSuggestions(t *testing.T) {
	a := strongAnswers()
	a.ExistingSupports = []string{"dtc", "pwd", "rdsp"}
	res := Screen(a)

	for _, p := range res.Programs {
		if p.Name == "RDSP" {
			t.Error("existing RDSP must not be suggested again")
		}
	}
	for _, s := range res.NextSteps {
		if s.Title == "Apply for the DTC" || s.Title == "Apply for BC PWD" {
			t.Errorf("already-held support suggested: %q", s.Title)
		}
	}
}
