package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	attnLabelPattern = regexp.MustCompile(`(?i)ATTN:?`)
	usWordPattern    = regexp.MustCompile(`\bus\b`)
)

var (
	attnStopWords   = []string{"date:", "po #", "vendor", "ship to"}
	shipToStopWords = []string{"terms", "net 30", "order qty", "unit cost", "amount", "total", "requested", "r e q u e s t e d"}
	blockStopWords  = []string{"ship to:", "bill to:", "item", "qty", "total"}
	countryMarkers  = []string{"united states", "usa", "u.s.a"}
)

// blockLookahead is how many lines after a "bill to"/"ship to" label can
// belong to the address.
const blockLookahead = 4

// regionLines splits a cropped region into trimmed, non-blank lines.
func regionLines(region string) []string {
	var lines []string
	for _, line := range strings.Split(region, "\n") {
		if clean := strings.TrimSpace(line); clean != "" {
			lines = append(lines, clean)
		}
	}
	return lines
}

// isCountryLine reports whether an address line ends the address.
func isCountryLine(lower string) bool {
	return containsAny(lower, countryMarkers) || usWordPattern.MatchString(lower)
}

// accumulateAddress collects lines until a stop word (excluded) or a country
// line (included).
func accumulateAddress(lines []string, stopWords []string) string {
	var parts []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		if containsAny(lower, stopWords) {
			break
		}
		if line == "" {
			continue
		}
		parts = append(parts, line)
		if isCountryLine(lower) {
			break
		}
	}
	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, "\n")
}

// attnAddress reads the customer address from the region next to "ATTN:".
func attnAddress(region string) string {
	lines := regionLines(region)
	if len(lines) > 0 {
		lines[0] = strings.TrimSpace(attnLabelPattern.ReplaceAllString(lines[0], ""))
	}
	return accumulateAddress(lines, attnStopWords)
}

// shipToAddress reads the delivery address from the region below "Ship To".
// A first line that does not start with a digit is the customer name;
// otherwise the customer is unknown. ok is false when the region has no
// lines after the label.
func shipToAddress(region string) (customer, address string, ok bool) {
	lines := regionLines(region)
	if len(lines) > 0 && strings.Contains(strings.ToLower(lines[0]), "ship to") {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return "", "", false
	}

	first, _ := utf8.DecodeRuneInString(lines[0])
	if unicode.IsDigit(first) {
		return Unknown, accumulateAddress(lines, shipToStopWords), true
	}
	return lines[0], accumulateAddress(lines[1:], shipToStopWords), true
}

// addressBlock takes up to blockLookahead lines following the first line
// containing keyword.
func addressBlock(lines []string, keyword string) string {
	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), keyword) {
			start = i
			break
		}
	}
	if start == -1 {
		return Unknown
	}

	var parts []string
	for _, line := range lines[start+1 : min(start+1+blockLookahead, len(lines))] {
		if containsAny(strings.ToLower(line), blockStopWords) {
			break
		}
		if clean := strings.TrimSpace(line); clean != "" {
			parts = append(parts, clean)
		}
	}
	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, "\n")
}
