// Package charset resolves the legacy text encodings used for roster files and exports.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
)

// Lookup returns the encoding for a label. Besides the WHATWG labels known to
// htmlindex it accepts the Windows code page names cp932 and ms932.
func Lookup(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "cp932", "ms932", "windows-31j", "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %w", label, err)
	}
	return enc, nil
}
