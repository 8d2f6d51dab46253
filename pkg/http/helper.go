package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "caravan/pkg/errors"
)

const DateLayout = "2006-01-02"

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored so older clients keep working.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("Request body is empty")
		default:
			return apperrors.InvalidInput("Invalid request body")
		}
	}
	return nil
}

// QueryDate returns the named query parameter after checking it is a
// YYYY-MM-DD calendar date. A missing parameter yields "".
func QueryDate(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return "", apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", name, value))
	}
	return value, nil
}

// QueryString returns the first non-empty value among name and its aliases.
func QueryString(r *http.Request, name string, aliases ...string) string {
	query := r.URL.Query()
	for _, key := range append([]string{name}, aliases...) {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}
	return ""
}
