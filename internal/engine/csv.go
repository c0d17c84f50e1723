package engine

import "strings"

// The example address shipped in generated templates. Same row shape the
// importer expects, so an unmodified template always validates.
const templateAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

// ParseRecipients turns raw CSV text into ordered recipient rows. Blank
// lines are discarded, the first line is dropped when hasHeaders is set, and
// rows without a usable first column are skipped silently (blank trailing
// fields are an artifact of spreadsheet exports, not an error). File order is
// preserved. Pure and restartable: no state survives between calls.
func ParseRecipients(text string, hasHeaders, customAmounts bool) []Row {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	if hasHeaders {
		lines = lines[1:]
	}

	var rows []Row
	for _, line := range lines {
		columns := parseLine(line)
		if len(columns) == 0 {
			continue
		}

		address := strings.TrimSpace(columns[0])
		amount := ""
		if customAmounts && len(columns) >= 2 {
			amount = strings.TrimSpace(columns[1])
		}

		if address != "" {
			rows = append(rows, Row{Address: address, Amount: amount})
		}
	}
	return rows
}

// parseLine splits a single CSV line on commas, respecting double-quoted
// fields. A doubled quote inside a quoted field is a literal quote, per the
// common CSV escaping convention.
func parseLine(line string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"') // escaped quote
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))

	return result
}

// GenerateTemplate produces the CSV shape the importer expects: a header of
// "address" or "address,amount" plus example rows.
func GenerateTemplate(customAmounts, includeHeaders bool) string {
	var b strings.Builder

	if includeHeaders {
		if customAmounts {
			b.WriteString("address,amount\n")
		} else {
			b.WriteString("address\n")
		}
	}

	if customAmounts {
		b.WriteString(templateAddress + ",1.5\n")
		b.WriteString(templateAddress + ",2.0\n")
		b.WriteString(templateAddress + ",0.5\n")
	} else {
		b.WriteString(templateAddress + "\n")
		b.WriteString(templateAddress + "\n")
		b.WriteString(templateAddress + "\n")
	}

	return b.String()
}
