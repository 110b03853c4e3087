package ocr

import "regexp"

// ─── error-code heuristics ───

// Patterns tried in order; the first match wins.
var errorCodePatterns = []*regexp.Regexp{
	// A labeled code like "ERROR: 47", "ERR-12" or "E 305". Only the digits
	// are the code.
	regexp.MustCompile(`(?i)\b(?:ERROR|ERR|CODE|E)\s*[:-]?\s*(\d{1,4})\b`),
	// An alphanumeric code like "AB1234".
	regexp.MustCompile(`\b([A-Z]+\d{1,4})\b`),
	// A bare number.
	regexp.MustCompile(`\b(\d{1,4})\b`),
}

// ExtractErrorCode scans recognized text for an equipment error code. It
// returns the code and true on a match, or "" and false when the text holds
// no recognizable code.
func ExtractErrorCode(text string) (string, bool) {
	for _, pat := range errorCodePatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ─── barcode heuristics ───

var barcodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{12,14}$`),          // UPC/EAN
	regexp.MustCompile(`^[A-Z0-9]{6,20}$`),     // general alphanumeric
	regexp.MustCompile(`^\d{6,20}$`),           // numeric
	regexp.MustCompile(`^[A-Z]{2,4}\d{4,12}$`), // manufacturer prefix codes
	regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`),  // hyphen-grouped
}

var nonBarcodeChars = regexp.MustCompile(`[^A-Z0-9-]`)

// cleanBarcode strips everything a barcode cannot contain.
func cleanBarcode(text string) string {
	return nonBarcodeChars.ReplaceAllString(text, "")
}

// ExtractBarcode scans recognized text for a barcode or serial number. Each
// pattern is tried against the cleaned text first and the raw text second.
// When nothing matches, a cleaned candidate of at least six characters is
// accepted wholesale as a best-effort result.
func ExtractBarcode(text string) (string, bool) {
	clean := cleanBarcode(text)
	for _, pat := range barcodePatterns {
		if pat.MatchString(clean) {
			return clean, true
		}
		if pat.MatchString(text) {
			return text, true
		}
	}
	if len(clean) >= 6 {
		return clean, true
	}
	return "", false
}
