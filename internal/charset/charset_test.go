package charset

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestLookup(t *testing.T) {
	for _, label := range []string{"cp932", "CP932", "windows-31j", "Shift_JIS", "sjis"} {
		enc, err := Lookup(label)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", label, err)
		}
		if enc != japanese.ShiftJIS {
			t.Errorf("Lookup(%q) did not resolve to Shift_JIS", label)
		}
	}

	if _, err := Lookup("utf-8"); err != nil {
		t.Errorf("utf-8 should resolve: %v", err)
	}
	if _, err := Lookup("klingon-8"); err == nil {
		t.Error("expected error for unknown label")
	}
}
