// Package encoding converts names from legacy CJK code pages to UTF-8.
// Model files and download URLs produced on Chinese and Korean systems often
// carry GB18030 or EUC-KR bytes in object and file names.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// candidates are tried in order; the first decoding that yields valid UTF-8 wins.
var candidates = []encoding.Encoding{
	simplifiedchinese.GB18030,
	korean.EUCKR,
}

// ToUTF8 returns data as a UTF-8 string. Valid UTF-8 is returned unchanged;
// otherwise GB18030 and then EUC-KR are tried. If neither decodes, the bytes
// are returned with invalid sequences replaced by U+FFFD.
func ToUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	for _, enc := range candidates {
		out, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err == nil && utf8.Valid(out) && !bytes.ContainsRune(out, utf8.RuneError) {
			return string(out)
		}
	}
	return string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError))))
}

// StringToUTF8 is ToUTF8 for strings.
func StringToUTF8(s string) string {
	return ToUTF8([]byte(s))
}

// FromUTF8 encodes s with enc, returning s unchanged if it cannot be represented.
func FromUTF8(enc encoding.Encoding, s string) []byte {
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
