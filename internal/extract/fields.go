package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// datePattern matches ISO dates and D/M/Y dates with "/" or "-".
	datePattern      = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	dateTokenPattern = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}$`)
	shortDatePattern = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)

	poPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:PO|Order)\s*(?:#|Number|No\.?)?\s*[:.]?\s*([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`(?i)(PO[_-]\d+)`),
	}
	poHeaderPattern = regexp.MustCompile(`(?:po|purchase order)\s*(?:#|number|no\.?)?`)

	numericLinePattern = regexp.MustCompile(`^[\d\s\-/.]+$`)
	digitPattern       = regexp.MustCompile(`\d`)
	orderedBySplit     = regexp.MustCompile(`[:\t]`)
)

var (
	customerStopWords = []string{"purchase order", "invoice", "bill to", "ship to", "page", "date", "po #"}
	poLabelWords      = map[string]bool{
		"po": true, "order": true, "number": true, "no": true, "no.": true,
		"invoice": true, "date": true, "attn": true, "attn:": true,
	}
	poNextLineSkip = map[string]bool{"net": true, "30": true, "terms": true, "date": true}

	dateLabelWords     = []string{"date", "delivery", "ship", "due"}
	deliveryLabelWords = []string{"delivery", "ship", "due"}
	orderedByWords     = []string{"ordered by", "buyer", "requester"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// customerName returns the first line that is not a document header or a
// bare number/date.
func customerName(lines []string) string {
	for _, line := range lines {
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}
		if containsAny(strings.ToLower(clean), customerStopWords) {
			continue
		}
		if numericLinePattern.MatchString(clean) {
			continue
		}
		return clean
	}
	return Unknown
}

// poNumber tries the inline label patterns first and then a label line
// followed by a value line.
func poNumber(text string, lines []string) string {
	for _, pattern := range poPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if v := strings.TrimLeft(strings.TrimSpace(m[1]), "_-"); isPONumber(v) {
				return v
			}
		}
	}

	for i, line := range lines {
		if i+1 >= len(lines) {
			break
		}
		if !poHeaderPattern.MatchString(strings.ToLower(strings.TrimSpace(line))) {
			continue
		}
		for _, token := range strings.Fields(lines[i+1]) {
			if dateTokenPattern.MatchString(token) || poNextLineSkip[strings.ToLower(token)] {
				continue
			}
			if utf8.RuneCountInString(token) > 2 && digitPattern.MatchString(token) {
				return token
			}
		}
	}
	return Unknown
}

func isPONumber(v string) bool {
	return !poLabelWords[strings.ToLower(v)] && len(v) > 2 && digitPattern.MatchString(v)
}

// dates finds the order and delivery dates. A label line names the kind; the
// value is on the label line or the line after it.
func dates(text string, lines []string) (order, delivery string) {
	order, delivery = Unknown, Unknown

	for i, line := range lines {
		lower := strings.ToLower(line)
		if !containsAny(lower, dateLabelWords) {
			continue
		}

		found := datePattern.FindString(line)
		if found == "" && i+1 < len(lines) {
			found = datePattern.FindString(lines[i+1])
		}
		if found == "" {
			continue
		}

		if containsAny(lower, deliveryLabelWords) {
			if delivery == Unknown {
				delivery = found
			}
		} else if order == Unknown {
			order = found
		}
	}

	if order != Unknown && delivery != Unknown {
		return order, delivery
	}

	all := datePattern.FindAllString(text, -1)
	if len(all) == 0 {
		return order, delivery
	}
	if order == Unknown {
		order = all[0]
	}
	if delivery == Unknown {
		delivery = all[0]
		for _, d := range all[1:] {
			if d != all[0] {
				delivery = d
				break
			}
		}
	}
	return order, delivery
}

// orderedBy returns the value after the label on the first buyer line.
func orderedBy(lines []string) string {
	for _, line := range lines {
		if !containsAny(strings.ToLower(line), orderedByWords) {
			continue
		}
		parts := orderedBySplit.Split(line, 2)
		if len(parts) < 2 {
			continue
		}
		if v := strings.TrimSpace(parts[1]); v != "" {
			return v
		}
	}
	return Unknown
}
