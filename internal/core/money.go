// Package core provides the expense domain types and amount parsing.
//
// This file contains the parser used for amounts typed by people (CLI
// arguments), which accepts both decimal separators.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string to a float amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Zero and negative values are valid expenses.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-5")     -> -5, nil
//	ParseAmount("1.2.3")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	sign := ""
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		sign, s = s[:1], s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return 0, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}

	v, err := strconv.ParseFloat(sign+s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
