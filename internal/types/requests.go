//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError reports missing or malformed user input.
// It is returned before any network call and without a state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// AuditRequest is the input of a brand audit.
type AuditRequest struct {
	Brand string `json:"brand" validate:"required"`
	Query string `json:"query" validate:"required"`
}

// Validate trims the request and checks required fields.
func (r *AuditRequest) Validate() error {
	r.Brand = strings.TrimSpace(r.Brand)
	r.Query = strings.TrimSpace(r.Query)
	return structError(validate.Struct(r), "Please enter a brand and a search query.")
}

// CompareRequest is the input of a comparative analysis.
type CompareRequest struct {
	ClientURL     string `json:"clientUrl" validate:"required"`
	CompetitorURL string `json:"competitorUrl" validate:"required"`
}

// Validate trims the request and checks required fields.
func (r *CompareRequest) Validate() error {
	r.ClientURL = strings.TrimSpace(r.ClientURL)
	r.CompetitorURL = strings.TrimSpace(r.CompetitorURL)
	return structError(validate.Struct(r), "Please enter both URLs.")
}

// FactCheckRequest is the input of a fact-check.
type FactCheckRequest struct {
	BrandName   string `json:"brandName" validate:"required"`
	OfficialURL string `json:"officialUrl" validate:"required"`
}

// Validate trims the request and checks required fields.
func (r *FactCheckRequest) Validate() error {
	r.BrandName = strings.TrimSpace(r.BrandName)
	r.OfficialURL = strings.TrimSpace(r.OfficialURL)
	return structError(validate.Struct(r), "Please enter a brand name and an official URL.")
}

// structError maps validator output to the first failing field.
func structError(err error, message string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: fieldErrs[0].Field(), Message: message}
	}
	return &ValidationError{Field: "(request)", Message: err.Error()}
}
