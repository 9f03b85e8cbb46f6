/*
Package factory converts JSON configuration into engine types.

PURPOSE:
  Cycle policies, fee schedules and roster entries arrive as JSON from the
  admin UI and are stored as JSON. The factory validates them and builds the
  typed values the engine works with. Nothing invalid gets past a save.

JSON SCHEMA:
  Cycle policy:
    {"kind": "bimonthly_days",     "values": {"day_one": 5, "day_two": 20}}
    {"kind": "single_monthly_day", "values": {"day": "5"}}
    {"kind": "nth_business_day",   "values": {"n": 5}}
    {"kind": "weekly_on_day",      "values": {"weekday": 6}}

  Fee schedule:
    {
      "debit_fee": "1.99",
      "credit_fee_type": "tiered",
      "fixed_credit_fee": "3.50",
      "tiers": [{"installments": 1, "fee": "4.99"}, {"installments": 6, "fee": "12"}],
      "fee_bearer": "salon"
    }

  Professional:
    {
      "id": "p-1", "name": "Ana", "employment": "salaried",
      "fixed_salary": "2000", "salary_active": true, "salary_source": "salon",
      "commission_rate": "40",
      "commission_overrides": [{"item_id": "color", "rate": "50"}]
    }

USAGE:
  f := factory.New()
  policy, err := f.ParseCycle(data)     // *cycle.ConfigError on bad values
  schedule, err := f.ParseFees(data)
  pro, err := f.ParseProfessional(data)
  err = factory.ValidateRoster(roster)  // salary source graph check

SEE ALSO:
  - cycle/policy.go: Policy variants
  - fees/fees.go: Schedule
  - settlement/types.go: Professional
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is the sentinel behind every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError lists the offending fields of one document.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Factory builds typed configuration from JSON.
type Factory struct {
	validate *validator.Validate
}

// New creates a factory. Field errors are reported under their JSON names.
func New() *Factory {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Factory{validate: v}
}

// Struct runs tag validation and converts failures into a ValidationError.
func (f *Factory) Struct(v any) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fieldPath(fe.Namespace())] = describe(fe)
	}
	return out
}

func decode(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
