package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-storefront"
)

// Normalize maps any error raised while talking to the API to a
// *storefront.Error. Transport failures, deadlines and cancellation are
// KindNetwork; already normalized errors pass through.
func Normalize(err error) *storefront.Error {
	if err == nil {
		return nil
	}
	var normalized *storefront.Error
	if errors.As(err, &normalized) {
		return normalized
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &storefront.Error{Kind: storefront.KindNetwork, Message: "request timed out or was cancelled", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &storefront.Error{Kind: storefront.KindNetwork, Message: netErr.Error(), Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &storefront.Error{Kind: storefront.KindNetwork, Message: opErr.Error(), Err: err}
	}
	return &storefront.Error{Kind: storefront.KindUnknown, Message: err.Error(), Err: err}
}

// KindForStatus maps an HTTP status to an error kind.
func KindForStatus(status int) storefront.Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return storefront.KindUnauthorized
	case status == http.StatusNotFound:
		return storefront.KindNotFound
	case status >= 500:
		return storefront.KindServerError
	default:
		return storefront.KindUnknown
	}
}

// StatusError builds the error for a non-2xx response, taking the message
// from the body when the server sent one.
func StatusError(status int, body []byte) *storefront.Error {
	return &storefront.Error{
		Kind:    KindForStatus(status),
		Status:  status,
		Message: errorMessage(status, body),
	}
}

func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "errors.0.message", "errors.0"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
				return r.Str
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}
