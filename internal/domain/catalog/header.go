package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeHeader drops a UTF-8 BOM and composes Hangul to NFC, so headers
// saved with decomposed jamo still match.
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\uFEFF")
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}
