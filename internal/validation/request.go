package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/fit-agent/internal/types"
)

// requestInjectionPatterns reject a query outright. They are narrower than
// commonInjectionPatterns because job postings routinely say "you are a ...".
var requestInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior)\s+instructions?`),
	regexp.MustCompile(`(?i)(reveal|print|show)\s+(me\s+)?(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
	regexp.MustCompile(`(?i)<\s*/?\s*(system|assistant)\s*>`),
}

// ValidateRequest trims the query in place and checks length bounds, mode
// and injection patterns. Failures are *InvalidInputError.
func ValidateRequest(req *types.AssessRequest) error {
	if req == nil {
		return &InvalidInputError{Reason: "request is required"}
	}
	req.Query = strings.TrimSpace(req.Query)

	if err := req.Validate(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &InvalidInputError{
				Field:  strings.ToLower(fe.Field()),
				Reason: describeTag(fe),
				Cause:  err,
			}
		}
		return &InvalidInputError{Reason: err.Error(), Cause: err}
	}

	for _, pattern := range requestInjectionPatterns {
		if pattern.MatchString(req.Query) {
			return &InvalidInputError{
				Field:  "query",
				Reason: "query contains disallowed instruction-like content",
			}
		}
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
