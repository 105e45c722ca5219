// Package sequence issues the daily business identifiers used across the
// system: a single-letter category prefix, an eight-digit date key, and a
// zero-padded six-digit sequence (for example R20251116000001).
//
// Sequences are allocated with an optimistic compare-and-swap against the
// counter store, so independent processes can mint identifiers concurrently
// without a central sequencer.
package sequence

import (
	"fmt"
	"time"

	dErrors "rollcall/pkg/domain-errors"
)

// Category partitions counters per business table.
type Category string

const (
	CategoryEvent        Category = "event"
	CategoryRegistration Category = "registration"
	CategoryCheckin      Category = "checkin"
	CategoryMessage      Category = "message"
)

var prefixes = map[Category]string{
	CategoryEvent:        "E",
	CategoryRegistration: "R",
	CategoryCheckin:      "C",
	CategoryMessage:      "M",
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := prefixes[c]
	return ok
}

// Prefix returns the single-letter identifier prefix for the category.
func (c Category) Prefix() string {
	return prefixes[c]
}

const (
	dateKeyLayout  = "20060102"
	sequenceDigits = 6

	// maxSequence bounds the zero-padded field. Exceeding it within one day
	// is a programmer/configuration error, not a runtime condition to mask.
	maxSequence = 1_000_000
)

// DateKeyFor renders t as the 8-digit calendar key counters are partitioned
// by. A new day implicitly starts a fresh counter; nothing is reset.
func DateKeyFor(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ValidDateKey reports whether key parses as an 8-digit calendar date.
func ValidDateKey(key string) bool {
	_, err := time.Parse(dateKeyLayout, key)
	return err == nil
}

// FormatID builds the final identifier. Total length is fixed:
// len(prefix) + 8 + 6.
func FormatID(category Category, dateKey string, seq int) (string, error) {
	if !category.Valid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown category %q", category)
	}
	if !ValidDateKey(dateKey) {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid date key %q", dateKey)
	}
	if seq <= 0 || seq >= maxSequence {
		return "", dErrors.Newf(dErrors.CodeValidation, "sequence %d out of range", seq)
	}
	return fmt.Sprintf("%s%s%0*d", category.Prefix(), dateKey, sequenceDigits, seq), nil
}
