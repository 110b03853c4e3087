package ocr

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// minCodebookScore is the Jaro-Winkler similarity below which a codebook
// candidate is considered unrelated.
const minCodebookScore = 0.88

// ocrConfusions maps glyphs Tesseract commonly misreads on stamped or worn
// equipment labels onto their numeric look-alikes.
var ocrConfusions = strings.NewReplacer(
	"O", "0",
	"o", "0",
	"I", "1",
	"l", "1",
	"S", "5",
	"B", "8",
)

// normalizeCode folds OCR confusion glyphs and uppercases, so "SO1" and
// "501" compare equal.
func normalizeCode(code string) string {
	return strings.ToUpper(ocrConfusions.Replace(code))
}

// Codebook corrects extracted codes against the set of codes known for the
// serviced equipment. A nil or empty Codebook passes codes through unchanged.
type Codebook struct {
	codes []string
	// normalized[i] corresponds to codes[i].
	normalized []string
}

// NewCodebook builds a Codebook from known equipment codes. Blank entries
// are dropped.
func NewCodebook(codes []string) *Codebook {
	cb := &Codebook{}
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cb.codes = append(cb.codes, c)
		cb.normalized = append(cb.normalized, normalizeCode(c))
	}
	return cb
}

// Len returns the number of known codes.
func (cb *Codebook) Len() int {
	if cb == nil {
		return 0
	}
	return len(cb.codes)
}

// Correct maps an extracted code onto the closest known code. An exact match
// after confusion folding wins outright; otherwise the highest Jaro-Winkler
// score above the threshold wins. When nothing is close enough the input is
// returned unchanged with corrected=false.
func (cb *Codebook) Correct(code string) (string, bool) {
	if cb.Len() == 0 || code == "" {
		return code, false
	}
	norm := normalizeCode(code)

	best := -1
	bestScore := 0.0
	for i, known := range cb.normalized {
		if known == norm {
			return cb.codes[i], cb.codes[i] != code
		}
		if s := matchr.JaroWinkler(norm, known, false); s > bestScore {
			bestScore = s
			best = i
		}
	}
	if best >= 0 && bestScore >= minCodebookScore {
		return cb.codes[best], cb.codes[best] != code
	}
	return code, false
}
