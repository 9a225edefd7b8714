package nvsmi

import (
	"strconv"
	"strings"
)

// notAvailable is what the csv query formats print for unsupported fields.
const notAvailable = "N/A"

// noData is the pmon placeholder for an empty slot or missing reading.
const noData = "-"

// splitCSVRows splits comma-delimited query output into rows of trimmed
// fields, skipping lines that are empty after trimming. Field content is
// not inspected here; the readers validate arity and types.
func splitCSVRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		rows = append(rows, cols)
	}
	return rows
}

// splitColumnRows splits whitespace-delimited output (the pmon format) into
// rows of fields, skipping blank lines and `#` comment lines.
func splitColumnRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	return rows
}

// optionalFloat maps the N/A sentinel to nil. A malformed non-sentinel
// value fails, which drops the whole row.
func optionalFloat(s string) (*float64, bool) {
	if s == notAvailable {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func optionalInt(s, sentinel string) (*int, bool) {
	if s == sentinel {
		return nil, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &v, true
}
