package requestlog

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const Redacted = "[REDACTED]"

var sensitiveQueryKey = regexp.MustCompile(`(?i)secret|token|key|password|passwd|pwd|auth|signature|credential`)

var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"X-Api-Key":           {},
	"X-Auth-Token":        {},
	"X-Secret-Key":        {},
	"X-Webhook-Secret":    {},
}

// SanitizeURL rebuilds path?query with the values of secret-looking keys replaced.
func SanitizeURL(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	first := true
	for _, k := range keys {
		redact := sensitiveQueryKey.MatchString(k)
		for _, v := range query[k] {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			if redact {
				b.WriteString(Redacted)
			} else {
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}

// SanitizeHeaders flattens headers and drops credentials.
func SanitizeHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k, v := range header {
		name := http.CanonicalHeaderKey(k)
		if _, drop := sensitiveHeaders[name]; drop {
			continue
		}
		out[name] = strings.Join(v, ", ")
	}
	return out
}
