package engine

import "strings"

// FindDuplicates returns addresses appearing more than once, compared
// case-insensitively, each reported once with its first-seen casing.
// Advisory only: some callers intentionally pay one address twice with
// different amounts, so duplicates warn but never invalidate a batch.
func FindDuplicates(rows []Row) []string {
	seen := make(map[string]string, len(rows))
	reported := make(map[string]bool)
	var dups []string

	for _, row := range rows {
		address := strings.TrimSpace(row.Address)
		if !IsHexAddress(address) {
			continue
		}
		key := strings.ToLower(address)
		if first, ok := seen[key]; ok {
			if !reported[key] {
				dups = append(dups, first)
				reported[key] = true
			}
			continue
		}
		seen[key] = address
	}
	return dups
}
