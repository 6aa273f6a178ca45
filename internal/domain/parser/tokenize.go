package parser

import "strings"

// SplitLine splits one CSV line on commas. Inside a double-quoted span commas
// are literal and a doubled quote is an escaped quote character. Quote state
// never carries over a field boundary.
func SplitLine(line string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
			inQuotes = false
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// splitLines breaks raw text into non-blank lines, dropping a trailing CR.
func splitLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		if strings.TrimSpace(p) == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}
