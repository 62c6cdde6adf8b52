package upload

import (
	"errors"
	"fmt"
)

// Kind classifies an upload failure.
type Kind uint8

const (
	// KindDecode: the caller's payload could not be decoded (base64 / data URL).
	KindDecode Kind = iota + 1
	// KindNetwork: timeout or connection failure.
	KindNetwork
	// KindProtocol: a 2xx response whose body broke the JSON contract.
	KindProtocol
	// KindServerRejected: a non-2xx response.
	KindServerRejected
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindServerRejected:
		return "server rejected"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is returned by every Client operation. Match the class with
// errors.Is(err, ErrNetwork) and friends; use errors.As for Status and Body.
type Error struct {
	Kind   Kind
	Status int    // KindServerRejected only
	Body   string // KindServerRejected and KindProtocol
	Err    error
}

var (
	ErrDecode         = &Error{Kind: KindDecode}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrProtocol       = &Error{Kind: KindProtocol}
	ErrServerRejected = &Error{Kind: KindServerRejected}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerRejected:
		if e.Status == 0 {
			return "upload rejected by server"
		}
		return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Body)
	case KindProtocol:
		if e.Err == nil {
			return "unexpected upload response"
		}
		return fmt.Sprintf("unexpected upload response: %v", e.Err)
	default:
		if e.Err == nil {
			return e.Kind.String() + " error"
		}
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the package-level sentinels
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// retryable reports whether another attempt may succeed: transport failures,
// 5xx and 429.
func retryable(err error) bool {
	var ue *Error
	if !errors.As(err, &ue) {
		return false
	}
	switch ue.Kind {
	case KindNetwork:
		return true
	case KindServerRejected:
		return ue.Status >= 500 || ue.Status == 429
	}
	return false
}

// Message renders err for the person who pressed the hotkey.
func Message(err error) string {
	var ue *Error
	if !errors.As(err, &ue) {
		return err.Error()
	}
	switch ue.Kind {
	case KindDecode:
		return fmt.Sprintf("Failed to decode image: %v", ue.Err)
	case KindNetwork:
		return fmt.Sprintf("Network error: %v", ue.Err)
	case KindProtocol:
		return fmt.Sprintf("Invalid response from upload server: %v", ue.Err)
	case KindServerRejected:
		return fmt.Sprintf("Upload failed with status %d: %s", ue.Status, ue.Body)
	}
	return err.Error()
}
