package ocr

import "testing"

func TestCodebookCorrect(t *testing.T) {
	cb := NewCodebook([]string{"E101", "E105", "PMP-4402", "TLS450"})

	tests := []struct {
		name      string
		in        string
		want      string
		corrected bool
	}{
		{"exact match", "E101", "E101", false},
		{"confusion O for 0", "E1O1", "E101", true},
		{"confusion S for 5", "E1OS", "E105", true},
		{"confusion in longer code", "TLS45O", "TLS450", true},
		{"near miss one digit", "PMP-4402", "PMP-4402", false},
		{"unrelated stays", "ZZZ999", "ZZZ999", false},
		{"empty stays", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, corrected := cb.Correct(tt.in)
			if got != tt.want || corrected != tt.corrected {
				t.Errorf("Correct(%q) = (%q, %v), want (%q, %v)", tt.in, got, corrected, tt.want, tt.corrected)
			}
		})
	}
}

func TestCodebookNilAndEmpty(t *testing.T) {
	var nilCB *Codebook
	if got, corrected := nilCB.Correct("E101"); got != "E101" || corrected {
		t.Errorf("nil codebook Correct = (%q, %v)", got, corrected)
	}
	if nilCB.Len() != 0 {
		t.Error("nil codebook Len should be 0")
	}

	empty := NewCodebook([]string{"", "  "})
	if empty.Len() != 0 {
		t.Errorf("blank entries should be dropped, Len = %d", empty.Len())
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := normalizeCode("olSB"); got != "0158" {
		t.Errorf("normalizeCode = %q, want 0158", got)
	}
}
