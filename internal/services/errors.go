package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport     = errors.New("transport error")
	ErrHTTPStatus    = errors.New("unexpected http status")
	ErrDecode        = errors.New("decode error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrExtraction    = errors.New("extraction error")
	ErrFilesystem    = errors.New("filesystem error")
	ErrBusy          = errors.New("busy")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrHTTPStatus):
		return "http_status"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	default:
		return "transport"
	}
}

// Hint suggests an operator next step for the marker carried by err.
func Hint(err error) string {
	switch Kind(err) {
	case "configuration":
		return "check gamedeck config (gamedeck config validate)"
	case "validation":
		return "check the request parameters"
	case "not_found":
		return "verify the path or URL exists"
	case "busy":
		return "another install is running; retry when it finishes"
	case "http_status", "transport":
		return "check network access to the remote service"
	case "decode":
		return "remote service returned an unexpected payload"
	case "extraction":
		return "archive may be corrupt; re-download it"
	case "filesystem":
		return "check permissions and free space on the install volume"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
