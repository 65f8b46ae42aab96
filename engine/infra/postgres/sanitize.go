package postgres

import (
	"errors"
	"regexp"
)

var (
	connectionStringCredentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	connectionStringPasswordPattern    = regexp.MustCompile(`(?i)(password=)('(?:[^'\\]|\\.)*'|[^\s&]+)`)
)

// SanitizeDSN masks credentials in URL and keyword/value connection strings.
func SanitizeDSN(dsn string) string {
	sanitized := connectionStringCredentialsPattern.ReplaceAllString(dsn, "://***@")
	return connectionStringPasswordPattern.ReplaceAllString(sanitized, "${1}***")
}

// SanitizeError returns err unchanged when its text carries no credentials;
// otherwise it returns an error with a masked message that still unwraps to err.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	sanitized := SanitizeDSN(msg)
	if sanitized == msg {
		return err
	}
	return &sanitizedError{msg: sanitized, err: err}
}

type sanitizedError struct {
	msg string
	err error
}

func (e *sanitizedError) Error() string { return e.msg }

func (e *sanitizedError) Unwrap() error { return e.err }

// IsSanitized reports whether err was masked by SanitizeError.
func IsSanitized(err error) bool {
	var se *sanitizedError
	return errors.As(err, &se)
}
