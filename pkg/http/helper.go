package http

import (
	"net/http"
	"time"

	apperrors "carvio/pkg/errors"
)

// ParseISODate accepts the two date shapes clients send: full RFC 3339
// timestamps and bare calendar dates.
func ParseISODate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid date, must be ISO-8601: " + value)
	}
	return t, nil
}

// RequiredQuery extracts a non-empty query parameter or fails with a
// bad-request error.
func RequiredQuery(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", apperrors.InvalidInput("'" + name + "' query parameter is required")
	}
	return value, nil
}
