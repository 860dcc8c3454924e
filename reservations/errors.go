package reservations

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	default:
		return "unexpected"
	}
}

// Resources named by NotFound errors.
const (
	ResourceRestaurant  = "restaurant"
	ResourceTable       = "table"
	ResourceTimeSlot    = "timeSlot"
	ResourceReservation = "reservation"
)

// Error is the typed failure returned by Service. Msg is safe to show to
// clients; Err carries the underlying cause for logs.
type Error struct {
	Kind     Kind
	Resource string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Resource when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Resource == "" || t.Resource == e.Resource
}

var (
	ErrNotFound   = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrConflict   = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrValidation = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrForbidden  = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrUnexpected = &Error{Kind: KindUnexpected, Msg: "unexpected failure"}

	ErrRestaurantNotFound  = &Error{Kind: KindNotFound, Resource: ResourceRestaurant}
	ErrTableNotFound       = &Error{Kind: KindNotFound, Resource: ResourceTable}
	ErrTimeSlotNotFound    = &Error{Kind: KindNotFound, Resource: ResourceTimeSlot}
	ErrReservationNotFound = &Error{Kind: KindNotFound, Resource: ResourceReservation}
)

var notFoundMessages = map[string]string{
	ResourceRestaurant:  "Restaurant not found",
	ResourceTable:       "Table not found",
	ResourceTimeSlot:    "Time slot not found",
	ResourceReservation: "Reservation not found",
}

func NotFound(resource string) *Error {
	msg, ok := notFoundMessages[resource]
	if !ok {
		msg = resource + " not found"
	}
	return &Error{Kind: KindNotFound, Resource: resource, Msg: msg}
}

func Conflict(msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: cause}
}

func Validation(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Err: cause}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func Unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Msg: "Internal server error", Err: cause}
}

// KindOf reports the Kind of err; errors that are not *Error are unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// StatusCode maps err onto the HTTP status returned to clients.
// An unavailable slot answers 400, not 409, to keep the existing API contract.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text returned in the response body for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Msg
	}
	return "Internal server error"
}
