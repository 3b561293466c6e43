package lambda

import "strings"

// Request represents a normalized HTTP request for serverless functions.
// All state a handler needs is populated once at the invocation boundary:
// query parameters, headers, the decoded form body, the request path and
// the externally visible domain name used for signature verification.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Domain      string            `json:"domain"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	RawQuery    string            `json:"raw_query"`
	Body        []byte            `json:"body"`
	PathParams  map[string]string `json:"path_params"`
}

// Header returns the value for the given header name, case-insensitively.
// Lambda Function URL events lower-case header names; Twilio sends
// X-Twilio-Signature.
func (r *Request) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Query returns the named query parameter or the empty string.
func (r *Request) Query(name string) string {
	return r.QueryParams[name]
}

// Response represents a generic HTTP response for serverless functions.
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// HandlerFunc is a framework-agnostic handler interface.
type HandlerFunc func(req *Request) (*Response, error)
