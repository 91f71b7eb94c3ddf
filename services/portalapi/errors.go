package portalapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
)

var ErrSessionExpired = errors.New("session expired, please log in again")

// NetworkError means the API could not be reached or answered with an unusable response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a rejection sent by the API, carrying its own wording.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []core.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.UserMessage())
}

// UserMessage is the text to show the participant, as written by the server.
func (e *APIError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Error)
		}
		return strings.Join(msgs, " ")
	}
	return http.StatusText(e.StatusCode)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// decodeError reads `{"detail": "..."}` or `{"field": ["msg", ...]}` bodies.
// It returns nil when the body holds nothing usable.
func decodeError(status int, body string) *APIError {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil || len(raw) == 0 {
		return nil
	}

	apiErr := &APIError{StatusCode: status}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		msg := firstMessage(raw[k])
		if msg == "" {
			continue
		}
		switch k {
		case "detail", "non_field_errors", "error", "message":
			if apiErr.Detail == "" {
				apiErr.Detail = msg
			}
		default:
			apiErr.Fields = append(apiErr.Fields, core.FieldError{Field: domainField(k), Error: msg})
		}
	}
	if apiErr.Detail == "" && len(apiErr.Fields) == 0 {
		return nil
	}
	return apiErr
}

func firstMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
