// Package validate collects field-level validation failures.
package validate

import (
	"math"
	"strconv"
	"strings"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Add appends f when it is non-nil, so helpers can be chained:
//
//	errs = errs.Add(validate.Present("name", req.Name))
func (e Errs) Add(f *ErrField) Errs {
	if f == nil {
		return e
	}
	return append(e, *f)
}

// Err returns e as an error, or nil when there were no failures.
func (e Errs) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Helpers

// Present fails when a pointer field was absent from the input. Empty values
// are accepted.
func Present[T any](field string, v *T) *ErrField {
	if v == nil {
		return &ErrField{Field: field, Msg: "field required"}
	}
	return nil
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func Int(field, value string) (int, *ErrField) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ErrField{Field: field, Msg: "value is not a valid integer"}
	}
	return n, nil
}

func Float(field, value string) (float64, *ErrField) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, &ErrField{Field: field, Msg: "field required"}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ErrField{Field: field, Msg: "value is not a valid number"}
	}
	return f, nil
}
