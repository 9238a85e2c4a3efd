package resolver

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed resolution.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	NoCandidateFound
	AuthorizationFailed
	ServerFailure
	TransportFailure
)

func (k ErrorKind) String() string {
	switch k {
	case NoCandidateFound:
		return "no_candidate_found"
	case AuthorizationFailed:
		return "authorization_failed"
	case ServerFailure:
		return "server_error"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// ResolutionError is the terminal failure of a single resolution. Status is
// only set for errors derived from an HTTP response.
type ResolutionError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case NoCandidateFound:
		return "could not extract a download link"
	case AuthorizationFailed:
		if e.Status != 0 {
			return fmt.Sprintf("provider authorization failed (status %d)", e.Status)
		}
		return "provider authorization failed"
	case ServerFailure:
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	case TransportFailure:
		return "provider unreachable: " + e.Message
	default:
		return e.Message
	}
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches another *ResolutionError of the same kind that carries no
// status, which lets the package sentinels stand for a whole kind.
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status == 0 && t.Message == ""
}

var (
	// ErrNoCandidateFound means the provider answered but no strategy found a usable link.
	ErrNoCandidateFound = &ResolutionError{Kind: NoCandidateFound}
	// ErrAuthorizationFailed means the provider rejected the configured credentials.
	ErrAuthorizationFailed = &ResolutionError{Kind: AuthorizationFailed}
	// ErrServer matches every ServerError.
	ErrServer = &ResolutionError{Kind: ServerFailure}
	// ErrTransport matches every transport failure.
	ErrTransport = &ResolutionError{Kind: TransportFailure}

	// ErrProviderNotConfigured indicates a ProviderConfig missing required fields.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrEmptyVideoURL indicates the caller passed a blank video URL.
	ErrEmptyVideoURL = errors.New("video url is required")

	errTransportMissing = errors.New("resolver has no transport")
)

// ServerError builds the failure for a non-2xx, non-auth provider response.
func ServerError(status int, message string) error {
	return &ResolutionError{Kind: ServerFailure, Status: status, Message: message}
}

// TransportError builds the failure for a call that produced no usable response.
func TransportError(err error) error {
	if err == nil {
		return &ResolutionError{Kind: TransportFailure, Message: "unknown transport error"}
	}
	return &ResolutionError{Kind: TransportFailure, Message: err.Error(), Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// StatusOf returns the provider HTTP status attached to err, if any.
func StatusOf(err error) int {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// UserMessage renders err as the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrProviderNotConfigured) {
		return "the video provider is not configured: set the API key, host and endpoint"
	}
	if errors.Is(err, ErrEmptyVideoURL) {
		return "please enter a valid video URL"
	}

	var re *ResolutionError
	if !errors.As(err, &re) {
		return "an error occurred while processing your request"
	}

	switch re.Kind {
	case NoCandidateFound:
		return "could not extract a download link from the video"
	case AuthorizationFailed:
		return "authorization failed, check your API key"
	case ServerFailure:
		return fmt.Sprintf("provider error (status %d): %s", re.Status, re.Message)
	case TransportFailure:
		return "could not reach the provider: " + re.Message
	default:
		return "an error occurred while processing your request"
	}
}
