package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/thesis/internal/models"
	"github.com/ternarybob/thesis/internal/providers"
)

var (
	// ErrEmptyContent is returned when the model responds with no text.
	ErrEmptyContent = errors.New("no content in response")

	// ErrMissingField is wrapped by a ValidationError when a key is absent
	// or null.
	ErrMissingField = errors.New("required field missing")
)

// Keys every report object must carry. Empty strings are allowed.
var (
	reportKeys      = []string{"executiveSummary", "bullCase", "bearCase", "valuationAssessment", "valuationVerdict", "keyMetrics"}
	metricKeys      = []string{"name", "value", "explanation"}
	developmentKeys = []string{"date", "headline", "summary"}
	catalystKeys    = []string{"date", "event", "type"}
)

// ParseError means the response was not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid report JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError lists the report fields that broke the contract.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report failed validation: %s", strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseReport decodes and validates a model response. Markdown code fences
// around the JSON are tolerated.
func ParseReport(content string) (*models.GeneratedReport, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	var report models.GeneratedReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return nil, &ParseError{Err: err}
	}

	if missing := missingFields([]byte(content)); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing, Err: ErrMissingField}
	}

	if err := ValidateReport(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// missingFields lists keys that are absent or null. Type mismatches are
// left to the typed decode.
func missingFields(data []byte) []string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil
	}

	missing := missingKeys("", top, reportKeys)
	missing = append(missing, nullItems("bullCase", top["bullCase"])...)
	missing = append(missing, nullItems("bearCase", top["bearCase"])...)
	missing = append(missing, missingInItems("keyMetrics", top["keyMetrics"], metricKeys)...)
	missing = append(missing, missingInItems("recentDevelopments", top["recentDevelopments"], developmentKeys)...)
	missing = append(missing, missingInItems("catalystCalendar", top["catalystCalendar"], catalystKeys)...)
	return missing
}

func missingKeys(prefix string, obj map[string]json.RawMessage, keys []string) []string {
	var missing []string
	for _, key := range keys {
		if isNull(obj[key]) {
			missing = append(missing, prefix+key+" is required")
		}
	}
	return missing
}

func missingInItems(field string, raw json.RawMessage, keys []string) []string {
	if isNull(raw) {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var missing []string
	for i, item := range items {
		missing = append(missing, missingKeys(fmt.Sprintf("%s[%d].", field, i), item, keys)...)
	}
	return missing
}

func nullItems(field string, raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var missing []string
	for i, item := range items {
		if isNull(item) {
			missing = append(missing, fmt.Sprintf("%s[%d] is required", field, i))
		}
	}
	return missing
}

// isNull reports whether a raw value is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// ValidateReport checks the report against its struct tags.
func ValidateReport(report *models.GeneratedReport) error {
	err := providers.Validator().Struct(report)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: []string{err.Error()}, Err: err}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, describeFieldError(fe))
	}
	return &ValidationError{Fields: fields, Err: err}
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "GeneratedReport.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		// Drop the language tag line (```json).
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
