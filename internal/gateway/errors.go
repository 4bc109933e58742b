package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies gateway failures for callers that need to react differently.
type Kind int

const (
	KindUpstream Kind = iota
	KindRateLimited
	KindEmptyResult
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindEmptyResult:
		return "empty_result"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "upstream"
	}
}

var (
	ErrRateLimited    = errors.New("gateway: rate limited")
	ErrEmptyResult    = errors.New("gateway: empty result")
	ErrInvalidRequest = errors.New("gateway: invalid request")
)

// RateLimitMessage is shown to users whenever the provider quota is exhausted.
const RateLimitMessage = "We have reached the maximum number of generations available to the app today. " +
	"Thank you for your creativity! Please try again tomorrow."

// Error is the typed failure returned by every Gateway implementation.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	// Relayed marks a Message that is already user facing, as relayed by a proxy.
	Relayed bool
	Err     error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrEmptyResult:
		return e.Kind == KindEmptyResult
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	}
	return false
}

func RateLimited(op, message string, cause error) *Error {
	return &Error{Op: op, Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests, Message: message, Err: cause}
}

func EmptyResult(op, message string) *Error {
	return &Error{Op: op, Kind: KindEmptyResult, Message: message}
}

func InvalidRequest(op, message string) *Error {
	return &Error{Op: op, Kind: KindInvalidRequest, StatusCode: http.StatusBadRequest, Message: message}
}

func Upstream(op string, statusCode int, cause error) *Error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Op: op, Kind: KindUpstream, StatusCode: statusCode, Message: msg, Err: cause}
}

var quotaPhrases = []string{
	"quota",
	"api key not valid",
	"billing",
	"user location is not supported",
	"resource has been exhausted",
}

// IsQuotaMessage reports whether raw provider text describes quota, billing,
// credential or region exhaustion.
func IsQuotaMessage(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range quotaPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Classify wraps an arbitrary provider error. An explicit status (HTTP 429 or
// RESOURCE_EXHAUSTED) wins; phrase matching on the message is the fallback.
func Classify(op string, statusCode int, status string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if statusCode == http.StatusTooManyRequests || strings.EqualFold(status, "RESOURCE_EXHAUSTED") || IsQuotaMessage(err.Error()) {
		return RateLimited(op, RateLimitMessage, err)
	}
	return Upstream(op, statusCode, err)
}

// UserMessage renders an error as the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return "An unexpected error occurred: " + err.Error()
	}
	if gwErr.Relayed && gwErr.Message != "" {
		return gwErr.Message
	}
	switch gwErr.Kind {
	case KindRateLimited:
		if gwErr.Message != "" {
			return gwErr.Message
		}
		return RateLimitMessage
	case KindEmptyResult, KindInvalidRequest:
		return gwErr.Message
	default:
		return "An error occurred while contacting the server: " + gwErr.Message
	}
}

// HTTPStatus maps an error to the status the proxy endpoints answer with.
func HTTPStatus(err error) int {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return http.StatusInternalServerError
	}
	switch gwErr.Kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
