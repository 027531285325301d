package masterdata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics so "Hải Phòng" matches "hai phong".
// Vietnamese đ has no decomposition and is mapped explicitly.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

func searchKey(parts ...string) string {
	return Fold(strings.Join(parts, " "))
}

// likePattern escapes LIKE wildcards in a folded search term.
func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(Fold(search))
	return "%" + escaped + "%"
}
