// Package dtc scores the Disability Tax Credit screening questionnaire and
// the BC Persons with Disabilities designation alongside it. The scoring is
// a heuristic pre-screen, not legal or medical advice.
package dtc

import "sort"

// Answers holds the questionnaire responses. Field tags keep the original
// question numbering used by the dashboard form.
type Answers struct {
	HasDiagnosis     string   `json:"q1"`  // yes/no
	Conditions       []string `json:"q2"`  // autism, adhd, physical, vision, hearing, ...
	TwelveMonths     string   `json:"q3"`  // impairment has lasted 12+ months
	Province         string   `json:"q4"`  // two-letter province, BC unlocks PWD
	DailyImpact      string   `json:"q5"`  // yes/no
	Activities       []string `json:"q6"`  // affected daily activities
	TimeTaken        string   `json:"q7"`  // always/usually/sometimes
	NeedsHelp        string   `json:"q8"`  // always/frequently/occasionally
	TaxesFiled       string   `json:"q9"`  // yes/no
	PaidTaxes        string   `json:"q10"` // yes/no
	DiagnosisTiming  string   `json:"q11"` // childhood, 10+, 5-10, 3-5, 1-3, recent, not_yet
	ExistingSupports []string `json:"q12"` // dtc, pwd, rdsp
}

type Flag struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Program struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Eligible    bool   `json:"eligible"`
}

type NextStep struct {
	Priority    int    `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

type Refund struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type Outcome struct {
	Score           int    `json:"score"`
	Eligibility     string `json:"eligibility"`
	EstimatedRefund Refund `json:"estimatedRefund"`
	RetroYears      int    `json:"retroYears"`
}

type PWDOutcome struct {
	Score           int    `json:"score"`
	Eligibility     string `json:"eligibility"`
	MonthlyIncrease string `json:"monthlyIncrease"`
}

type Result struct {
	DTC       Outcome    `json:"dtc"`
	PWD       PWDOutcome `json:"pwd"`
	Programs  []Program  `json:"programs"`
	Flags     []Flag     `json:"flags"`
	NextSteps []NextStep `json:"nextSteps"`
}

// retroYearsByTiming maps diagnosis timing to claimable retroactive years.
var retroYearsByTiming = map[string]int{
	"childhood": 10,
	"10+":       10,
	"5-10":      7,
	"3-5":       4,
	"1-3":       2,
	"recent":    1,
}

// Screen scores the questionnaire. Score adjustments and thresholds are
// order-sensitive: the BC PWD program's eligible flag is evaluated with the
// score as of the province question, matching the questionnaire's advertised
// behavior.
func Screen(a Answers) *Result {
	dtcScore := 0
	pwdScore := 0
	flags := []Flag{}
	programs := []Program{}

	if a.HasDiagnosis == "yes" {
		dtcScore += 20
		pwdScore += 20
	} else {
		flags = append(flags, Flag{Type: "warning", Text: "A formal diagnosis is typically required."})
	}

	if has(a.Conditions, "autism") {
		dtcScore += 15
		pwdScore += 15
		flags = append(flags, Flag{Type: "info", Text: `Autism is commonly approved for DTC under "Mental Functions." Late diagnosis does not affect eligibility.`})
	}
	if has(a.Conditions, "adhd") {
		dtcScore += 10
	}
	if has(a.Conditions, "physical") || has(a.Conditions, "vision") || has(a.Conditions, "hearing") {
		dtcScore += 15
		pwdScore += 15
	}

	if a.TwelveMonths == "yes" {
		dtcScore += 15
		pwdScore += 15
	} else {
		dtcScore -= 30
		pwdScore -= 30
		flags = append(flags, Flag{Type: "warning", Text: "DTC requires impairment lasting at least 12 continuous months."})
	}

	if a.Province == "BC" {
		pwdScore += 10
		programs = append(programs, Program{
			Name:        "BC PWD Designation",
			Description: "Higher monthly assistance ($1,358.50/mo), extended health benefits, bus pass.",
			Eligible:    pwdScore > 30,
		})
	}

	if a.DailyImpact == "yes" {
		dtcScore += 15
		pwdScore += 15
	} else {
		dtcScore -= 20
	}

	switch n := len(a.Activities); {
	case n >= 4:
		dtcScore += 15
		pwdScore += 10
	case n >= 2:
		dtcScore += 10
		pwdScore += 5
	}

	switch a.TimeTaken {
	case "always":
		dtcScore += 15
	case "usually":
		dtcScore += 10
	case "sometimes":
		dtcScore += 5
	}

	switch a.NeedsHelp {
	case "always":
		dtcScore += 15
		pwdScore += 10
	case "frequently":
		dtcScore += 10
		pwdScore += 5
	case "occasionally":
		dtcScore += 5
	}

	retroYears := retroYearsByTiming[a.DiagnosisTiming]

	dtcScore = clamp(dtcScore)
	pwdScore = clamp(pwdScore)

	var minRefund, maxRefund int
	if dtcScore > 50 && a.PaidTaxes == "yes" {
		years := min(retroYears, 10)
		minRefund = years * 1500
		maxRefund = years * 2500
		if a.DiagnosisTiming == "childhood" || a.DiagnosisTiming == "10+" {
			maxRefund = 25000
		}
	}

	programs = append([]Program{{
		Name:        "Disability Tax Credit (T2201)",
		Description: "Federal non-refundable tax credit. Can claim retroactively up to 10 years.",
		Eligible:    dtcScore > 50,
	}}, programs...)

	if !has(a.ExistingSupports, "rdsp") && dtcScore > 50 {
		programs = append(programs, Program{
			Name:        "RDSP",
			Description: "Government matches savings up to $3,500/year. Requires DTC approval.",
			Eligible:    true,
		})
	}

	var steps []NextStep
	if a.DiagnosisTiming == "not_yet" {
		steps = append(steps, NextStep{Priority: 1, Title: "Get a Formal Diagnosis", Description: "Book an assessment with a psychologist or psychiatrist.", Action: "Search for diagnostic assessments in your area"})
	}
	if dtcScore > 40 && !has(a.ExistingSupports, "dtc") {
		steps = append(steps, NextStep{Priority: 2, Title: "Apply for the DTC", Description: "Download Form T2201 from CRA. Have your doctor complete Part B.", Action: "Download T2201 form"})
	}
	if a.Province == "BC" && pwdScore > 30 && !has(a.ExistingSupports, "pwd") {
		steps = append(steps, NextStep{Priority: 3, Title: "Apply for BC PWD", Description: "Contact your Employment and Assistance Worker.", Action: "Call 1-866-866-0800"})
	}
	if a.TaxesFiled == "no" {
		steps = append(steps, NextStep{Priority: 1, Title: "File Your Tax Returns", Description: "File returns for past years to receive DTC refunds.", Action: "File through CRA My Account"})
	}
	steps = append(steps, NextStep{Priority: 5, Title: "Document Daily Limitations", Description: "Write specific examples of how your condition affects daily activities.", Action: "Start a daily impact journal"})
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Priority < steps[j].Priority })

	dtcEligibility := bands(dtcScore, 70, 50, 30)
	pwdEligibility := "N/A (BC only)"
	monthly := "N/A"
	if a.Province == "BC" {
		pwdEligibility = bcBands(pwdScore)
		monthly = "$423.50/mo"
	}

	return &Result{
		DTC: Outcome{
			Score:           dtcScore,
			Eligibility:     dtcEligibility,
			EstimatedRefund: Refund{Min: minRefund, Max: maxRefund},
			RetroYears:      retroYears,
		},
		PWD: PWDOutcome{
			Score:           pwdScore,
			Eligibility:     pwdEligibility,
			MonthlyIncrease: monthly,
		},
		Programs:  programs,
		Flags:     flags,
		NextSteps: steps,
	}
}

func bands(score, likely, possible, unlikely int) string {
	switch {
	case score >= likely:
		return "Likely"
	case score >= possible:
		return "Possible"
	case score >= unlikely:
		return "Unlikely"
	default:
		return "No"
	}
}

func bcBands(score int) string {
	switch {
	case score >= 60:
		return "Likely"
	case score >= 40:
		return "Possible"
	default:
		return "Unlikely"
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func has(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
