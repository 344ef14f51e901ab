package util

import (
	"net/url"
	"strings"
)

// CanonicalizeURL reduces a raw URL (with or without scheme) to its
// homepage identity: https scheme, host without a leading "www.", path "/".
// Path and query are discarded on purpose; two inputs with the same host
// collapse to the same canonical record.
func CanonicalizeURL(raw string) (canonicalURL, origin string, err error) {
	input := strings.TrimSpace(raw)
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", "", err
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", "", &url.Error{Op: "canonicalize", URL: raw, Err: url.InvalidHostError(raw)}
	}
	return "https://" + host + "/", host, nil
}

// Slugify lower-cases, collapses runs of non-alphanumerics to single
// hyphens, and trims leading/trailing hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
