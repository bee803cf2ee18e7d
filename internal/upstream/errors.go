package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
)

// detailItem is one entry of a list-shaped backend detail.
type detailItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// NormalizeResponse maps a non-2xx upstream response to the error taxonomy.
//
//   - 409: duplicate_request
//   - 408, 425, 429, 502, 503, 504: transient_network_error
//   - 400, 422: validation_error, with the backend detail decoded
//   - 404: not_found
//   - anything else: unexpected_error
//
// The backend detail field is either a string or a list of {loc, msg}
// objects; both shapes are decoded and anything else is ignored. Message is
// left empty so the banner text comes from the detail or the kind; the status
// is kept in Status for logs.
func NormalizeResponse(status int, body []byte) *apperr.Error {
	e := &apperr.Error{Status: status}
	switch status {
	case http.StatusConflict:
		e.Kind = apperr.KindDuplicateRequest
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Kind = apperr.KindTransient
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Kind = apperr.KindValidation
	case http.StatusNotFound:
		e.Kind = apperr.KindNotFound
	default:
		e.Kind = apperr.KindUnexpected
	}
	e.Detail, e.Fields = decodeDetail(body)
	return e
}

func decodeDetail(body []byte) (string, map[string][]string) {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(body) == 0 || json.Unmarshal(body, &env) != nil || len(env.Detail) == 0 {
		return "", nil
	}
	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return strings.TrimSpace(s), nil
	}
	var items []detailItem
	if json.Unmarshal(env.Detail, &items) != nil || len(items) == 0 {
		return "", nil
	}
	fields := make(map[string][]string, len(items))
	for _, it := range items {
		name := locField(it.Loc)
		fields[name] = append(fields[name], it.Msg)
	}
	return "", fields
}

// locField turns a loc path such as ["body", "amount"] into a field name.
// The leading request-part marker is dropped; an empty path maps to the
// record-level key.
func locField(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && (s == "body" || s == "query" || s == "path") && len(loc) > 1 {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "_record"
	}
	return strings.Join(parts, ".")
}

// NormalizeTransport maps a failed round trip to the taxonomy. Timeouts and
// connection errors are transient; cancellations are transient too so the
// caller may retry with the same token.
func NormalizeTransport(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnexpected {
		// url.Error wraps dial and TLS failures that are not net.Error timeouts.
		kind = apperr.KindTransient
	}
	return apperr.Wrap(kind, "", err)
}
