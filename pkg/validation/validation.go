package validation

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/topaplus/commandcenter/pkg/pagination"
)

var (
	v    *validator.Validate
	once sync.Once
)

// oneOfFold registers a tag accepting a fixed, case-insensitive vocabulary.
func oneOfFold(val *validator.Validate, tag string, allowed ...string) {
	_ = val.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		if s == "" {
			return true // empty means default; pair with required when mandatory
		}
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	})
}

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Custom: calendar date in ISO form
		_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			_, err := time.Parse("2006-01-02", s)
			return err == nil
		})
		oneOfFold(v, "datemode", "standard", "hybrid", "hybrid-by-payment-date")
		oneOfFold(v, "stage", "simulated", "eligible", "excluded", "analyzed", "approved", "generated", "paid", "rejected")
		oneOfFold(v, "window", "all", "last_7", "last_15", "last_30", "custom")
		oneOfFold(v, "agentscope", "paid_active", "all_filtered")
		// Custom: cursor must be decodable via pagination.DecodeCursor
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
				return false
			}
			_, err := pagination.DecodeCursor(s)
			return err == nil
		})
	})
	return v
}

// ValidateStruct validates a struct and returns a user-friendly "CODE: message"
// string suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "required_without":
				if field == "stage" {
					return "VALIDATION: stage is required (or supply cursor)"
				}
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "civildate":
				return fmt.Sprintf("VALIDATION: %s must be a date in YYYY-MM-DD form", field)
			case "datemode":
				return "VALIDATION: mode must be standard or hybrid"
			case "stage":
				return "VALIDATION: stage must be one of simulated, eligible, excluded, analyzed, approved, generated, paid, rejected"
			case "window":
				return "VALIDATION: window must be one of all, last_7, last_15, last_30, custom"
			case "agentscope":
				return "VALIDATION: agent_scope must be paid_active or all_filtered"
			case "cursor":
				return "CURSOR_INVALID: failed to decode cursor; restart pagination"
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
