package extract

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText decodes UTF-8 (or BOM-marked UTF-16) bytes. Invalid sequences
// become U+FFFD instead of failing.
func decodeText(data []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
