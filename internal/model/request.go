package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// AnalysisRequest is the caller input for a valuation analysis.
type AnalysisRequest struct {
	CompanyDescription string           `json:"companyDescription" validate:"required,min=50"`
	AnalysisDepth      AnalysisDepth    `json:"analysisDepth" validate:"omitempty,oneof=standard comprehensive investment-grade"`
	ValuationMethods   ValuationMethods `json:"valuationMethods" validate:"omitempty,oneof=all revenue-multiple earnings-multiple custom"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request and fills defaults for depth and methods.
func (r *AnalysisRequest) Validate() error {
	r.CompanyDescription = strings.TrimSpace(r.CompanyDescription)
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return eris.New(describeFieldError(verrs[0]))
		}
		return eris.Wrap(err, "request: validate")
	}
	if r.AnalysisDepth == "" {
		r.AnalysisDepth = DepthComprehensive
	}
	if r.ValuationMethods == "" {
		r.ValuationMethods = MethodsAll
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch {
	case fe.Field() == "CompanyDescription" && fe.Tag() == "min":
		return "company description must be at least 50 characters"
	case fe.Field() == "CompanyDescription":
		return "company description is required"
	case fe.Tag() == "oneof":
		return fmt.Sprintf("%s must be one of: %s", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
	}
}
