package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/validate"
)

const maxBodyBytes = 1 << 20

// decodeNewExpense reads an expense from a JSON object body. name and
// category must be strings and amount a number; all three are required.
// Empty strings are accepted and unknown fields ignored.
func decodeNewExpense(w http.ResponseWriter, r *http.Request) (core.NewExpense, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return core.NewExpense{}, validate.Errs{{Field: "body", Msg: "request body too large or unreadable"}}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return core.NewExpense{}, validate.Errs{{Field: "body", Msg: "expected a JSON object"}}
	}

	var (
		errs     validate.Errs
		name     *string
		amount   *float64
		category *string
	)
	name, errs = decodeField[string](raw, "name", "string", errs)
	amount, errs = decodeField[float64](raw, "amount", "number", errs)
	category, errs = decodeField[string](raw, "category", "string", errs)
	if err := errs.Err(); err != nil {
		return core.NewExpense{}, err
	}

	return core.NewExpense{Name: *name, Amount: *amount, Category: *category}, nil
}

// decodeField decodes raw[field] into T. An absent field, a null or a value
// of another JSON type appends a field error.
func decodeField[T any](raw map[string]json.RawMessage, field, kind string, errs validate.Errs) (*T, validate.Errs) {
	msg, ok := raw[field]
	if !ok {
		return nil, errs.Add(validate.Present[T](field, nil))
	}
	var v T
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) || json.Unmarshal(msg, &v) != nil {
		return nil, errs.Add(&validate.ErrField{Field: field, Msg: fmt.Sprintf("must be a %s", kind)})
	}
	return &v, errs
}
