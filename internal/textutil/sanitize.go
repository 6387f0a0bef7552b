package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

const maxSlugLength = 80

// Slug converts a video title into a lowercase, hyphen-separated file stem.
// Accents are folded ("Café" becomes "cafe"), runs of anything other than
// letters and digits collapse to one hyphen, and the result is capped at 80
// bytes on a hyphen boundary where possible. Returns "summary" when nothing
// usable remains.
func Slug(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		cut := slug[:maxSlugLength]
		if idx := strings.LastIndexByte(cut, '-'); idx > maxSlugLength/2 {
			cut = cut[:idx]
		} else {
			for !utf8.ValidString(cut) {
				cut = cut[:len(cut)-1]
			}
		}
		slug = strings.Trim(cut, "-")
	}
	if slug == "" {
		return "summary"
	}
	return slug
}
