package export

import (
	"strings"
	"unicode"
)

// DefaultFileName is used when a display name has no usable characters.
const DefaultFileName = "document.pdf"

// FileName derives a download name from a document's display name: only
// letters (including CJK) and digits are kept, then ".pdf" is appended.
func FileName(displayName string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, displayName)
	if name == "" {
		return DefaultFileName
	}
	return name + ".pdf"
}
