package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/thesis/internal/models"
)

func TestParseReport_Valid(t *testing.T) {
	report, err := ParseReport(validReportJSON(t))
	require.NoError(t, err)
	assert.Equal(t, validReport(), report)
}

func TestParseReport_StripsCodeFence(t *testing.T) {
	body := validReportJSON(t)

	for _, content := range []string{
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
		"  \n" + body + "\n",
	} {
		report, err := ParseReport(content)
		require.NoError(t, err)
		assert.Equal(t, "fairly_valued", report.ValuationVerdict)
	}
}

func TestParseReport_Errors(t *testing.T) {
	_, err := ParseReport("   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = ParseReport("{not json")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestValidateReport(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.GeneratedReport)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *models.GeneratedReport) {}},
		{name: "two bull points", mutate: func(r *models.GeneratedReport) { r.BullCase = r.BullCase[:2] }, wantErr: true},
		{name: "six bear points", mutate: func(r *models.GeneratedReport) {
			r.BearCase = append(r.BearCase, "a", "b", "c")
		}, wantErr: true},
		{name: "five bear points", mutate: func(r *models.GeneratedReport) {
			r.BearCase = append(r.BearCase, "a", "b")
		}},
		{name: "empty bull point", mutate: func(r *models.GeneratedReport) { r.BullCase[0] = "" }},
		{name: "unknown verdict", mutate: func(r *models.GeneratedReport) { r.ValuationVerdict = "cheap" }, wantErr: true},
		{name: "four key metrics", mutate: func(r *models.GeneratedReport) { r.KeyMetrics = r.KeyMetrics[:4] }, wantErr: true},
		{name: "empty metric explanation", mutate: func(r *models.GeneratedReport) { r.KeyMetrics[0].Explanation = "" }},
		{name: "empty summary", mutate: func(r *models.GeneratedReport) { r.ExecutiveSummary = "" }},
		{name: "empty valuation assessment", mutate: func(r *models.GeneratedReport) { r.ValuationAssessment = "" }},
		{name: "empty verdict", mutate: func(r *models.GeneratedReport) { r.ValuationVerdict = "" }, wantErr: true},
		{name: "bad catalyst type", mutate: func(r *models.GeneratedReport) { r.CatalystCalendar[0].Type = "merger" }, wantErr: true},
		{name: "no optional sections", mutate: func(r *models.GeneratedReport) {
			r.CatalystCalendar = nil
			r.RecentDevelopments = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := validReport()
			tt.mutate(report)

			err := ValidateReport(report)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Fields)
		})
	}
}

func TestParseReport_WrongFieldType(t *testing.T) {
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(validReportJSON(t)), &raw))
	raw["bullCase"] = "one long string"
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = ParseReport(string(data))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseReport_EmptyStringsAccepted(t *testing.T) {
	raw := decodeReport(t)
	raw["executiveSummary"] = ""
	raw["valuationAssessment"] = ""
	raw["bullCase"] = []interface{}{"", "Services margin reached 71%", "Buyback of $90 billion authorized"}

	report, err := ParseReport(encodeReport(t, raw))

	require.NoError(t, err)
	assert.Empty(t, report.ExecutiveSummary)
	assert.Empty(t, report.ValuationAssessment)
	assert.Empty(t, report.BullCase[0])
}

func TestParseReport_MissingKeys(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(raw map[string]interface{})
		want   string
	}{
		{
			name:   "missing summary",
			mutate: func(raw map[string]interface{}) { delete(raw, "executiveSummary") },
			want:   "executiveSummary is required",
		},
		{
			name:   "null valuation assessment",
			mutate: func(raw map[string]interface{}) { raw["valuationAssessment"] = nil },
			want:   "valuationAssessment is required",
		},
		{
			name: "null bull point",
			mutate: func(raw map[string]interface{}) {
				raw["bullCase"] = []interface{}{nil, "b", "c"}
			},
			want: "bullCase[0] is required",
		},
		{
			name: "metric without explanation",
			mutate: func(raw map[string]interface{}) {
				metrics := raw["keyMetrics"].([]interface{})
				delete(metrics[1].(map[string]interface{}), "explanation")
			},
			want: "keyMetrics[1].explanation is required",
		},
		{
			name: "catalyst without event",
			mutate: func(raw map[string]interface{}) {
				catalysts := raw["catalystCalendar"].([]interface{})
				delete(catalysts[0].(map[string]interface{}), "event")
			},
			want: "catalystCalendar[0].event is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decodeReport(t)
			tt.mutate(raw)

			_, err := ParseReport(encodeReport(t, raw))

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, validationErr.Fields, tt.want)
		})
	}
}

func decodeReport(t *testing.T) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(validReportJSON(t)), &raw))
	return raw
}

func encodeReport(t *testing.T, raw map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return string(data)
}
