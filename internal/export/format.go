package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Reports are read by French-speaking station staff.
var printer = message.NewPrinter(language.French)

// FormatWeight renders a weight in kilograms with grouping separators
// and two decimals.
func FormatWeight(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatAmount renders a monetary aggregate with grouping separators
// and two decimals.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatCount renders an integer count with grouping separators.
func FormatCount(v int64) string {
	return printer.Sprintf("%d", v)
}

var accentReplacer = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
)

// Slugify lowercases a subject and collapses everything outside
// [a-z0-9] into single dashes.
func Slugify(s string) string {
	s = accentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// FileName builds a report file name from a subject slug, the generation
// time and an extension, e.g. "ecart-details-2026-08-31-1504.pdf".
func FileName(subject, ext string, at time.Time) string {
	slug := Slugify(subject)
	if slug == "" {
		slug = "rapport"
	}
	return fmt.Sprintf("%s-%s.%s", slug, at.Format("2006-01-02-1504"), strings.TrimPrefix(ext, "."))
}
