package report

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/thesis/internal/models"
)

var specificNumber = regexp.MustCompile(`\d+(\.\d+)?%|\$\d+|\d+x`)

// Scoring thresholds.
const (
	minSummaryLength   = 100
	minValuationLength = 200
	minCasePoints      = 3
	minKeyMetrics      = 5
)

// ScoreReportQuality grades a report on completeness, specificity and the
// balance between its bull and bear cases. It is deterministic and never
// fails; a poor report simply scores low with issues listed in evaluation
// order.
func ScoreReportQuality(report *models.GeneratedReport) models.QualityScore {
	issues := []string{}
	completeness := 100
	specificity := 100
	balance := 100

	if utf8.RuneCountInString(report.ExecutiveSummary) < minSummaryLength {
		completeness -= 20
		issues = append(issues, "Executive summary is too short")
	}
	if len(report.BullCase) < minCasePoints {
		completeness -= 15
		issues = append(issues, "Bull case has fewer than 3 points")
	}
	if len(report.BearCase) < minCasePoints {
		completeness -= 15
		issues = append(issues, "Bear case has fewer than 3 points")
	}
	if utf8.RuneCountInString(report.ValuationAssessment) < minValuationLength {
		completeness -= 20
		issues = append(issues, "Valuation assessment is too short")
	}
	if len(report.KeyMetrics) < minKeyMetrics {
		completeness -= 10
		issues = append(issues, "Fewer than 5 key metrics")
	}

	for _, point := range report.BullCase {
		if !specificNumber.MatchString(point) {
			specificity -= 5
		}
	}
	for _, point := range report.BearCase {
		if !specificNumber.MatchString(point) {
			specificity -= 5
		}
	}
	if !specificNumber.MatchString(report.ValuationAssessment) {
		specificity -= 20
		issues = append(issues, "Valuation assessment lacks specific numbers")
	}

	ratio := caseBalance(report.BullCase, report.BearCase)
	switch {
	case ratio < 0.5:
		balance -= 30
		issues = append(issues, "Bull and bear cases are significantly unbalanced")
	case ratio < 0.7:
		balance -= 15
		issues = append(issues, "Bull and bear cases could be more balanced")
	}

	overall := int(math.Floor(float64(completeness)*0.4 + float64(specificity)*0.35 + float64(balance)*0.25 + 0.5))

	return models.QualityScore{
		Overall:      clamp(overall),
		Completeness: clamp(completeness),
		Specificity:  clamp(specificity),
		Balance:      clamp(balance),
		Issues:       issues,
	}
}

// caseBalance is min/max of the joined case lengths. Two empty cases are
// treated as balanced.
func caseBalance(bull, bear []string) float64 {
	bullLen := utf8.RuneCountInString(strings.Join(bull, " "))
	bearLen := utf8.RuneCountInString(strings.Join(bear, " "))

	longer := max(bullLen, bearLen)
	if longer == 0 {
		return 1
	}
	return float64(min(bullLen, bearLen)) / float64(longer)
}

func clamp(v int) int {
	return max(0, min(100, v))
}
