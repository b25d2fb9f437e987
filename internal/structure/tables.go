package structure

import (
	"regexp"
	"strings"
)

// table detection: contiguous runs of lines that look column-aligned, either
// pipe-delimited or split by runs of >=2 spaces at stable offsets. A run
// qualifies only with at least two rows.

var reColumnSplit = regexp.MustCompile(` {2,}`)

func detectTables(lines []string) [][][]string {
	var tables [][][]string
	var current [][]string
	var currentCols int

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
		currentCols = 0
	}

	for _, line := range lines {
		cells, cols := splitRow(line)
		if cols < 2 {
			flush()
			continue
		}
		if currentCols != 0 && cols != currentCols {
			flush()
		}
		currentCols = cols
		current = append(current, cells)
	}
	flush()
	return tables
}

// splitRow returns the row cells and the column count, or (nil, 0) when the
// line does not look like a table row.
func splitRow(line string) ([]string, int) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, 0
	}
	if strings.Contains(trimmed, "|") {
		parts := strings.Split(trimmed, "|")
		var cells []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cells = append(cells, p)
			}
		}
		if len(cells) >= 2 {
			return cells, len(cells)
		}
		return nil, 0
	}
	parts := reColumnSplit.Split(trimmed, -1)
	if len(parts) >= 2 {
		var cells []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cells = append(cells, p)
			}
		}
		if len(cells) >= 2 {
			return cells, len(cells)
		}
	}
	return nil, 0
}

var (
	reFormFilled = regexp.MustCompile(`^([\p{L}' °\x{2019}\-]{2,40})\s*:\s*(\S.*)$`)
	reFormBlank  = regexp.MustCompile(`^([\p{L}' °\x{2019}\-]{2,40})\s*:\s*(?:_{2,}|\.{3,})\s*$`)
)

// detectFormFields finds "label: value" and "label: ____" lines. Blank
// fields map to the empty string.
func detectFormFields(lines []string) map[string]string {
	fields := make(map[string]string)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := reFormBlank.FindStringSubmatch(trimmed); m != nil {
			key := strings.TrimSpace(m[1])
			if _, exists := fields[key]; !exists {
				fields[key] = ""
			}
			continue
		}
		if m := reFormFilled.FindStringSubmatch(trimmed); m != nil {
			key := strings.TrimSpace(m[1])
			val := strings.TrimSpace(m[2])
			if _, exists := fields[key]; !exists {
				fields[key] = val
			}
		}
	}
	return fields
}
