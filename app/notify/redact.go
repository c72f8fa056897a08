package notify

import (
	"net/url"
	"strings"
)

// RedactURL hides credentials in a URL so it can be logged. Discord keeps
// the webhook token in the last path segment; query values and userinfo
// are masked as well.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}

	if i := strings.Index(u.Path, "/webhooks/"); i >= 0 {
		segments := strings.Split(strings.Trim(u.Path[i+len("/webhooks/"):], "/"), "/")
		if len(segments) >= 2 {
			segments[len(segments)-1] = "REDACTED"
			u.Path = u.Path[:i] + "/webhooks/" + strings.Join(segments, "/")
			u.RawPath = ""
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}

	return u.Redacted()
}
