package mockservice

import (
	"regexp"
	"strings"
)

var scriptPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)

// sanitizeText strips script elements and any remaining angle brackets from
// user-supplied text, so stored values can never round-trip as markup.
func sanitizeText(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return strings.TrimSpace(s)
}
