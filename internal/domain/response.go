package domain

import "net/http"

// Response is the successful pipeline payload: what was observed, what the
// model predicts, and which background to show.
type Response struct {
	Observation
	Prediction
	Video string `json:"video"`
}

// ErrorResponse is the external shape of a failed pipeline run.
type ErrorResponse struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"-"`
}

// Result holds exactly one of Response or Error.
type Result struct {
	Response *Response
	Error    *ErrorResponse
}

// StatusCode is the HTTP status the result should be served with.
func (r Result) StatusCode() int {
	if r.Error != nil {
		return r.Error.Status
	}
	return http.StatusOK
}

// Body is the value to serialize for the caller.
func (r Result) Body() any {
	if r.Error != nil {
		return r.Error
	}
	return r.Response
}

// OK reports whether the run produced a Response.
func (r Result) OK() bool { return r.Error == nil && r.Response != nil }
