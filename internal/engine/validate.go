package engine

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Reason classifies why a recipient row was rejected.
type Reason string

const (
	ReasonMissingAddress Reason = "MissingAddress"
	ReasonInvalidAddress Reason = "InvalidAddress"
	ReasonMissingAmount  Reason = "MissingAmount"
	ReasonInvalidAmount  Reason = "InvalidAmount"
)

// RowError is a per-row rejection with its 1-based line number over the
// input order.
type RowError struct {
	Line   int
	Reason Reason
	Value  string
}

func (e RowError) Error() string {
	switch e.Reason {
	case ReasonMissingAddress:
		return fmt.Sprintf("Line %d: Address is required", e.Line)
	case ReasonInvalidAddress:
		return fmt.Sprintf("Line %d: Invalid address %q", e.Line, e.Value)
	case ReasonMissingAmount:
		return fmt.Sprintf("Line %d: Amount is required", e.Line)
	default:
		return fmt.Sprintf("Line %d: Invalid amount %q", e.Line, e.Value)
	}
}

// ImportResult is the outcome of validating a recipient batch.
// IsValid is true iff Errors is empty: a single malformed row invalidates
// the whole import. All-or-nothing is deliberate — fixing the file and
// re-uploading beats silently paying a surprising subset.
type ImportResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Accepted []Row    `json:"accepted"`
}

// TopErrors caps surfaced messages so a 5000-line broken file does not
// drown the caller.
func (r ImportResult) TopErrors(n int) []string {
	if len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// IsHexAddress reports whether s is the canonical 0x + 40 hex digit form.
// Case is accepted but never normalized here; checksum casing is the
// caller's concern.
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// FormatAddress truncates an address for display (0x742d...f44e). Anything
// that is not a valid address passes through untouched.
func FormatAddress(s string) string {
	if !IsHexAddress(s) || len(s) < 11 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// ValidateRecipients checks rows in order and classifies each as accepted or
// rejected. Amounts are validated under the codec rules for the asset's
// decimals when amountsRequired is set.
func ValidateRecipients(rows []Row, amountsRequired bool, decimals uint8) ImportResult {
	var errs []string
	var accepted []Row

	for i, row := range rows {
		line := i + 1

		address := strings.TrimSpace(row.Address)
		if address == "" {
			errs = append(errs, RowError{Line: line, Reason: ReasonMissingAddress}.Error())
			continue
		}
		if !IsHexAddress(address) {
			errs = append(errs, RowError{Line: line, Reason: ReasonInvalidAddress, Value: address}.Error())
			continue
		}

		if amountsRequired {
			amount := strings.TrimSpace(row.Amount)
			if amount == "" {
				errs = append(errs, RowError{Line: line, Reason: ReasonMissingAmount}.Error())
				continue
			}
			if _, err := ToPositiveMinorUnits(amount, decimals); err != nil {
				errs = append(errs, RowError{Line: line, Reason: ReasonInvalidAmount, Value: amount}.Error())
				continue
			}
		}

		accepted = append(accepted, row)
	}

	return ImportResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Accepted: accepted,
	}
}

// ValidateImport is the bulk-import pipeline: parse CSV text, then validate
// every row. Pure; safe to call on every upload attempt.
func ValidateImport(text string, hasHeaders, amountsRequired bool, decimals uint8) ImportResult {
	rows := ParseRecipients(text, hasHeaders, amountsRequired)
	return ValidateRecipients(rows, amountsRequired, decimals)
}
