package web

import (
	"fmt"
	"net/http"
	"strconv"
)

// Request is the parsed form of an incoming HTTP request. Only the first
// value of a repeated query parameter is kept.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
}

// ParseRequest extracts method, path and query parameters from r.
func ParseRequest(r *http.Request) Request {
	q := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			q[k] = v[0]
		}
	}
	return Request{Method: r.Method, Path: r.URL.Path, Query: q}
}

// paramError is a validation failure reported to the client as 400.
type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s parameter: %s", e.reason, e.name)
}

// String returns the named parameter, failing if it is absent.
func (r Request) String(name string) (string, error) {
	v, ok := r.Query[name]
	if !ok {
		return "", &paramError{name: name, reason: "missing"}
	}
	return v, nil
}

// Int returns the named parameter as an integer within [min, max].
func (r Request) Int(name string, min, max int) (int, error) {
	s, err := r.String(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, &paramError{name: name, reason: "invalid"}
	}
	return n, nil
}
