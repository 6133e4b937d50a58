package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests that never reached the rule engine.
var errBadRequest = errors.New("bad request")

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Is(target error) bool { return target == errBadRequest }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body must not be empty")
		}
		return badRequest("invalid request body: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// pathString returns an unescaped, trimmed URL parameter.
func pathString(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", badRequest("invalid %s %q", name, raw)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", badRequest("%s must not be empty", name)
	}
	return v, nil
}

// parseTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, which
// are taken as midnight UTC.
func parseTime(name, v string) (time.Time, error) {
	d, err := parseDate(name, v)
	return d.Time, err
}

func parseDate(name, v string) (Date, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return Date{Time: t.UTC()}, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return Date{Time: t, DateOnly: true}, nil
	}
	return Date{}, badRequest("invalid %s %q, expected RFC 3339 or YYYY-MM-DD", name, v)
}

// queryDate parses an optional query parameter; ok is false when absent.
func queryDate(r *http.Request, name string) (d Date, ok bool, err error) {
	v := r.URL.Query().Get(name)
	if strings.TrimSpace(v) == "" {
		return Date{}, false, nil
	}
	d, err = parseDate(name, v)
	return d, err == nil, err
}

// requiredQueryDate parses a mandatory query parameter.
func requiredQueryDate(r *http.Request, name string) (Date, error) {
	d, ok, err := queryDate(r, name)
	if err != nil {
		return Date{}, err
	}
	if !ok {
		return Date{}, badRequest("missing %s", name)
	}
	return d, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// Date is a JSON time that also accepts a bare YYYY-MM-DD date. The zero
// value means "not provided".
type Date struct {
	time.Time
	// DateOnly is set when the value was given without a time of day.
	DateOnly bool
}

// EndOfDay returns the value for use as an inclusive upper bound. A bare
// date covers the whole day, up to its last storable instant.
func (d Date) EndOfDay() time.Time {
	if !d.DateOnly {
		return d.Time
	}
	return d.Time.AddDate(0, 0, 1).Add(-core.TimePrecision)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := parseDate("date", s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
