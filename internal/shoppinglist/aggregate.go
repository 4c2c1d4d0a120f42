// Package shoppinglist merges the ingredient lines of every recipe in a user's
// cart into one list and renders it for download.
//
// Aggregation is keyed by ingredient name only. When two recipes record the
// same ingredient under different units the first unit seen is kept and the
// amounts are still summed; UnitConflicts reports such names.
package shoppinglist

import (
	"errors"
	"fmt"
	"strings"
)

// IngredientLine is one (name, unit, amount) record contributed by a single
// recipe-ingredient association.
type IngredientLine struct {
	Name   string `json:"name"`
	Unit   string `json:"measurement_unit"`
	Amount int    `json:"amount"`
}

// Entry is the merged total for one distinct ingredient name.
type Entry struct {
	Name        string `json:"name"`
	Unit        string `json:"measurement_unit"`
	TotalAmount int    `json:"total_amount"`
}

// Aggregate sums amounts per ingredient name. Output order is the order in
// which names are first seen in lines. It never fails; an empty input yields
// an empty, non-nil slice.
func Aggregate(lines []IngredientLine) []Entry {
	out := make([]Entry, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.Name]; ok {
			out[i].TotalAmount += l.Amount
			continue
		}
		pos[l.Name] = len(out)
		out = append(out, Entry{Name: l.Name, Unit: l.Unit, TotalAmount: l.Amount})
	}
	return out
}

// UnitConflicts returns, in first-seen order, the names whose lines disagree
// on the unit.
func UnitConflicts(lines []IngredientLine) []string {
	first := make(map[string]string, len(lines))
	reported := make(map[string]bool)
	var out []string
	for _, l := range lines {
		u, ok := first[l.Name]
		if !ok {
			first[l.Name] = l.Unit
			continue
		}
		if u != l.Unit && !reported[l.Name] {
			reported[l.Name] = true
			out = append(out, l.Name)
		}
	}
	return out
}

var (
	ErrEmptyName      = errors.New("empty ingredient name")
	ErrNegativeAmount = errors.New("negative amount")
)

// LineError points at the offending input line.
type LineError struct {
	Index int
	Line  IngredientLine
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Index, e.Line.Name, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Validate checks the producer's contract. Aggregate does not call it; callers
// that ingest lines from outside the store run it first.
func Validate(lines []IngredientLine) error {
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			return &LineError{Index: i, Line: l, Err: ErrEmptyName}
		}
		if l.Amount < 0 {
			return &LineError{Index: i, Line: l, Err: ErrNegativeAmount}
		}
	}
	return nil
}
