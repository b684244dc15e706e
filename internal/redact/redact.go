package redact

import (
	"errors"
	"net/url"
	"strings"
)

const Mask = "REDACTED"

type maskedError struct {
	msg   string
	cause error
}

func (e *maskedError) Error() string { return e.msg }
func (e *maskedError) Unwrap() error { return e.cause }

func mask(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
		if escaped := url.QueryEscape(secret); escaped != secret {
			s = strings.ReplaceAll(s, escaped, Mask)
		}
	}
	return s
}

// String masks every secret in s.
func String(s string, secrets ...string) string {
	return mask(s, secrets)
}

// Error masks every secret in err's text, including the query-escaped form
// a transport error prints inside its request URL. An error that mentions
// none of them comes back unchanged.
//
// A masked error still unwraps to the transport cause of a *url.Error, so
// timeouts and context cancellation stay detectable with errors.Is.
func Error(err error, secrets ...string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	masked := mask(msg, secrets)
	if masked == msg {
		return err
	}

	var cause error
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil && mask(ue.Err.Error(), secrets) == ue.Err.Error() {
		cause = ue.Err
	}
	return &maskedError{msg: masked, cause: cause}
}
