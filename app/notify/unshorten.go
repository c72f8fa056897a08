package notify

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

var urlPattern = regexp.MustCompile(`https?://[^\s/$.?#].[^\s]*`)

// Unshortener expands shortened links in free text by following redirects.
// Any failure keeps the link as written.
type Unshortener struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewUnshortener(httpClient *http.Client, userAgent string, timeout time.Duration) *Unshortener {
	return &Unshortener{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Expand rewrites every link whose redirect target differs as
// "<target> (original: <link>)". Each distinct link is resolved once and
// the text is rewritten in a single pass.
func (u *Unshortener) Expand(ctx context.Context, text string) string {
	resolved := make(map[string]string)

	return urlPattern.ReplaceAllStringFunc(text, func(link string) string {
		target, ok := resolved[link]
		if !ok {
			target = u.Resolve(ctx, link)
			resolved[link] = target
		}
		if target == link {
			return link
		}
		return target + " (original: " + link + ")"
	})
}

// Resolve returns the final URL after following redirects, or link itself
// if the request fails.
func (u *Unshortener) Resolve(ctx context.Context, link string) string {
	reqCtx := ctx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, link, nil)
	if err != nil {
		slog.Debug("Cannot build unshorten request", "url", link, "error", err)
		return link
	}
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		slog.Debug("Failed to unshorten URL", "url", link, "error", err)
		return link
	}
	resp.Body.Close()

	final := resp.Request.URL.String()
	if final != link {
		slog.Debug("URL unshortened", "url", link, "resolved", final)
	}
	return final
}
