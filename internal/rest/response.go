package rest

import (
	"encoding/json"
	"fmt"
)

// Response is the outcome of a request that reached the server.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Err converts a non-2xx response into a *RemoteError.
func (r *Response) Err(method, resource string) error {
	if r.OK() {
		return nil
	}
	return &RemoteError{
		Method:     method,
		Resource:   resource,
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Body:       string(r.Body),
	}
}

// RemoteError is a non-2xx answer from the vendor.
type RemoteError struct {
	Method     string
	Resource   string
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s rejected with HTTP %d: %s", e.Method, e.Resource, e.StatusCode, e.Body)
}
