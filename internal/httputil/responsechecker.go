// Package httputil adapts raw net/http responses from advisory feeds
// (OSV, NVD, EPSS, CISA KEV) into the bazbom error taxonomy, so callers
// don't each re-derive which HTTP failures are worth retrying.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/bazbom/bazbom"
)

// CheckResponse takes a http.Response and the status codes an advisory
// fetch considers successful. A non-acceptable response is classified
// per spec §7: 429 and 5xx are ErrTransient (the caller's feed refresh
// may succeed on retry), anything else is ErrPermanent (a 404 or 401
// against an advisory source won't heal itself). The returned *bazbom.Error
// wraps as much of the response body as CheckResponse could read.
func CheckResponse(resp *http.Response, acceptableCodes ...int) error {
	if slices.Contains(acceptableCodes, resp.StatusCode) {
		return nil
	}

	kind := bazbom.ErrPermanent
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		kind = bazbom.ErrTransient
	}

	limitBody, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := fmt.Sprintf("unexpected status %q for %q", resp.Status, resp.Request.URL.Redacted())
	if err == nil && len(limitBody) > 0 {
		msg = fmt.Sprintf("%s (body starts: %q)", msg, limitBody)
	}
	return &bazbom.Error{Kind: kind, Op: "httputil.CheckResponse", Message: msg}
}
