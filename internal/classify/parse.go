package classify

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Label is a recognized transmission classification.
type Label string

// Transmission labels form the closed set of recognized responses.
const (
	LabelAutomatic Label = "automatic"
	LabelManual    Label = "manual"
)

// ParseKind tags the outcome of parsing a classifier response.
type ParseKind int

// Parse outcomes. Malformed responses are retried by the caller;
// ambiguous ones are not distinguishable from malformed for retry purposes
// but are reported separately for diagnostics.
const (
	ParseRecognized ParseKind = iota
	ParseMalformed
	ParseAmbiguous
)

// ParseResult is the tagged outcome of interpreting a classifier response.
type ParseResult struct {
	Kind  ParseKind
	Label Label
}

var (
	bareAutomaticRe = regexp.MustCompile(`(?i)^"?automatic"?$`)
	bareManualRe    = regexp.MustCompile(`(?i)^"?manual"?$`)
	automaticWordRe = regexp.MustCompile(`(?i)\bautomatic\b`)
	manualWordRe    = regexp.MustCompile(`(?i)\bmanual\b`)
)

// ParseTransmissionResponse interprets a free-form model response in
// descending order of confidence:
//
//  1. strict JSON parse expecting a "transmission" field (or a bare
//     JSON string),
//  2. the first {...} fragment embedded in the text,
//  3. a bare single-token response with optional quotes,
//  4. keyword sniffing, recognized only when exactly one of the two
//     labels appears.
//
// Anything else is Malformed; both keywords present is Ambiguous.
func ParseTransmissionResponse(text string) ParseResult {
	s := strings.Trim(strings.TrimSpace(text), "`")
	if s == "" {
		return ParseResult{Kind: ParseMalformed}
	}

	// 1) Direct JSON parse (object or bare string).
	if label, ok := transmissionFromJSON(s); ok {
		return ParseResult{Kind: ParseRecognized, Label: label}
	}

	// 2) Extract the first {...} slice and try again.
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start != -1 && end > start {
		if label, ok := transmissionFromJSON(s[start : end+1]); ok {
			return ParseResult{Kind: ParseRecognized, Label: label}
		}
	}

	// 3) Bare word responses.
	if bareAutomaticRe.MatchString(s) {
		return ParseResult{Kind: ParseRecognized, Label: LabelAutomatic}
	}
	if bareManualRe.MatchString(s) {
		return ParseResult{Kind: ParseRecognized, Label: LabelManual}
	}

	// 4) Keyword sniffing, only when exactly one label appears.
	hasAuto := automaticWordRe.MatchString(s)
	hasManual := manualWordRe.MatchString(s)
	switch {
	case hasAuto && hasManual:
		return ParseResult{Kind: ParseAmbiguous}
	case hasAuto:
		return ParseResult{Kind: ParseRecognized, Label: LabelAutomatic}
	case hasManual:
		return ParseResult{Kind: ParseRecognized, Label: LabelManual}
	}
	return ParseResult{Kind: ParseMalformed}
}

// transmissionFromJSON attempts a strict JSON parse of s and returns a
// recognized label if one is present.
func transmissionFromJSON(s string) (Label, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		if val, ok := obj["transmission"].(string); ok {
			return recognizeLabel(val)
		}
		return "", false
	}
	var bare string
	if err := json.Unmarshal([]byte(s), &bare); err == nil {
		return recognizeLabel(bare)
	}
	return "", false
}

func recognizeLabel(v string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(v))) {
	case LabelAutomatic:
		return LabelAutomatic, true
	case LabelManual:
		return LabelManual, true
	}
	return "", false
}
