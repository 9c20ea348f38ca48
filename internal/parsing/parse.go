// Package parsing implements the deterministic field-extraction heuristics
// that turn a raw listing fragment into candidate attribute values. The
// classifier in internal/classify is only consulted when these fail.
package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	yearRe         = regexp.MustCompile(`(?:19|20)\d{2}`)
	titlePrefixRe  = regexp.MustCompile(`(?i)^(One-Owner|Original-Owner|Modified|Supercharged|Turbocharged|Custom|JDM)\s+`)
	titleYearRe    = regexp.MustCompile(`^(?:[\d.,kK-]+-Mile\s+)?(?:19|20)\d{2}\s+`)
	priceStatusRe  = regexp.MustCompile(`(Sold for|Bid to) USD \$([\d,]+)`)
	soldDateRe     = regexp.MustCompile(`on\s+([0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4})`)
	mileageRe      = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?k)\b|\b(\d{1,3}(?:[.,]\d{3})*)[\s-]*miles?\b`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	soldDateLayout = []string{"1/2/06", "Jan 2, 2006"}
)

// ExtractYear returns the first four-digit model year found in the title,
// or 0 if none is present.
func ExtractYear(title string) int {
	m := yearRe.FindString(title)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

// SplitMakeModel splits a listing title into make and model using the
// known-make dictionary. It strips condition prefixes, leading mileage
// annotations, and the model year before matching, e.g.
// "15k-Mile 2021 Land Rover Range Rover Evoque" yields
// ("Land Rover", "Range Rover Evoque"). Returns ("", "") when no known
// make matches; callers fall back to the classifier.
func SplitMakeModel(rawTitle string) (make, model string) {
	title := titlePrefixRe.ReplaceAllString(rawTitle, "")
	stripped := strings.TrimSpace(titleYearRe.ReplaceAllString(title, ""))

	for _, candidate := range knownMakes {
		if strings.HasPrefix(stripped, candidate+" ") {
			model = strings.TrimSpace(stripped[len(candidate):])
			return NormalizeMake(candidate), model
		}
	}
	return "", ""
}

// ExtractPriceAndStatus parses a result line like
// "Sold for USD $19,200 on 8/7/25" or "Bid to USD $15,000".
// Returns nil pointers when the text matches neither form.
func ExtractPriceAndStatus(text string) (price *int, status *string) {
	m := priceStatusRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	s := "reserve_not_met"
	if m[1] == "Sold for" {
		s = "sold"
	}
	p, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return nil, nil
	}
	return &p, &s
}

// ExtractSoldDateText pulls the "on 8/7/25" date fragment out of a result
// line, returning the bare date string or "".
func ExtractSoldDateText(text string) string {
	m := soldDateRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseSoldDate parses the auction-result date formats "8/1/25" and
// "Aug 1, 2025". Returns nil if the string matches neither.
func ParseSoldDate(dateStr string) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}
	for _, layout := range soldDateLayout {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return &t
		}
	}
	return nil
}

// ParseMileageString converts a raw mileage string ("19K", "19,500",
// "19.5k", "19k-Mile") to an integer mileage. Returns nil if it cannot
// be parsed.
func ParseMileageString(raw string) *int {
	if raw == "" {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-mile", "")
	s = strings.ReplaceAll(s, "mile", "")
	s = strings.TrimSpace(s)

	if strings.HasSuffix(s, "k") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "k"), 64)
		if err != nil {
			return nil
		}
		v := int(f * 1000)
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int(f)
	return &v
}

// ExtractMileage returns the highest plausible odometer reading found in
// text. Only values with a 'k' suffix or values explicitly followed by
// "mile"/"miles" are considered, so listing prices and years don't match.
// Returns nil when nothing plausible is present; a genuine zero reading
// ("0 miles") yields a pointer to 0.
func ExtractMileage(text string) *int {
	if text == "" {
		return nil
	}
	matches := mileageRe.FindAllStringSubmatch(strings.ToLower(text), -1)

	var best *int
	for _, m := range matches {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		miles := ParseMileageString(raw)
		if miles == nil {
			continue
		}
		if best == nil || *miles > *best {
			best = miles
		}
	}
	return best
}

// StripHTML removes markup tags from a fragment like the API's sold_text.
func StripHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// IsOriginalOwner reports whether the title advertises a single-owner car.
func IsOriginalOwner(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "original-owner") || strings.Contains(lower, "one-owner")
}
