// Package slug turns product names into URL-friendly identifiers.
package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// accentFolder maps the accented Latin characters common in product names
// to their ASCII equivalents.
var accentFolder = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Basic Tee" → "basic-tee"
//   - "Café Crème Mug" → "cafe-creme-mug"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = accentFolder.Replace(slug)

	// Any remaining non-alphanumeric run becomes a single hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
