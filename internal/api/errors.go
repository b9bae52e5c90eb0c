package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every *Error wraps exactly one of these.
var (
	ErrNetworkFailure  = errors.New("network failure")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failure")
	ErrServer          = errors.New("server failure")
)

// ErrAccountInactive is returned by Login when the backend has not yet
// approved the account.
var ErrAccountInactive = errors.New("account not activated")

// Error describes a failed API operation.
type Error struct {
	Op      string
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

func kindLabel(kind error) string {
	switch kind {
	case ErrNetworkFailure:
		return "network"
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrValidation:
		return "validation"
	case ErrServer:
		return "server"
	}
	return "unknown"
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// errorMessage pulls a human readable message out of an error response.
// FastAPI sends {"detail": "..."} or {"detail": [{"loc": [...], "msg": "..."}]}.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s
		}
		var details []validationDetail
		if err := json.Unmarshal(eb.Detail, &details); err == nil {
			msgs := make([]string, 0, len(details))
			for _, d := range details {
				if field := fieldName(d.Loc); field != "" {
					msgs = append(msgs, field+": "+d.Msg)
				} else {
					msgs = append(msgs, d.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}

func fieldName(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
