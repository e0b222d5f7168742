package client

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

var sensitiveHeaders = []string{"Authorization", "X-Api-Key", "Cookie", "Set-Cookie"}

const headerMask = "*****"

// MaskedHeaderValue returns value unless the header carries credentials, in
// which case it returns a mask. Debug logs and report attachments must never
// contain real tokens.
func MaskedHeaderValue(name, value string) string {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return headerMask
		}
	}
	return value
}

// curlCommand renders a request as a copy-pasteable curl command for the
// debug log, with credential header values masked.
func curlCommand(method, url string, headers http.Header, body []byte) string {
	parts := []string{"curl", "-X", method}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range headers[name] {
			parts = append(parts, "-H", fmt.Sprintf("%s: %s", name, MaskedHeaderValue(name, value)))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "--data", string(body))
	}
	parts = append(parts, url)

	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		quoted = append(quoted, shellescape.Quote(part))
	}
	return strings.Join(quoted, " ")
}
