package translate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies translation failures so callers can branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAuth
	KindQuota
	KindUnsupportedLanguage
	KindUnsupportedBackend
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindUnsupportedLanguage:
		return "unsupported-language"
	case KindUnsupportedBackend:
		return "unsupported-backend"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Translator.Translate.
type Error struct {
	Kind    Kind
	Backend Name
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := Message(e)
	if e.Backend != "" {
		return fmt.Sprintf("%s: %s", e.Backend, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the error text without the backend name.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return e.Message
	default:
		return e.Kind.String() + " error"
	}
}

// KindOf reports the kind of a translation error, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a translation error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func wrap(backend Name, err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Backend == "" {
			e.Backend = backend
		}
		return e
	}
	return &Error{Kind: classifyTransport(err), Backend: backend, Err: err}
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// classifyStatus maps a non-200 response to an error kind. badRequest is the
// kind a 400 means for this provider.
func classifyStatus(status int, body []byte, badRequest Kind) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests || status == 456: // 456: DeepL quota exceeded
		return KindQuota
	case status == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(string(body)), "lang") {
			return KindUnsupportedLanguage
		}
		return badRequest
	case status >= 500:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// maxErrorBody caps how many runes of a response body end up in the message.
const maxErrorBody = 200

func statusError(status int, body []byte, badRequest Kind) *Error {
	msg := strings.TrimSpace(string(body))
	if r := []rune(msg); len(r) > maxErrorBody {
		msg = string(r[:maxErrorBody]) + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		Kind:    classifyStatus(status, body, badRequest),
		Message: fmt.Sprintf("HTTP %d: %s", status, msg),
	}
}
