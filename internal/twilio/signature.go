// Package twilio wraps the pieces of the Twilio integration this service
// depends on: webhook signature verification and read-only call lookups.
package twilio

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	twclient "github.com/twilio/twilio-go/client"

	"twilio-webhook-api/pkg/lambda"
)

// SignatureHeader is the header Twilio signs requests with.
const SignatureHeader = "X-Twilio-Signature"

var (
	// ErrMissingSignature indicates the signature header was absent.
	ErrMissingSignature = errors.New("Missing X-Twilio-Signature header")
	// ErrInvalidSignature indicates the supplied signature did not match.
	ErrInvalidSignature = errors.New("Invalid Twilio request signature")
)

// VerifySignature checks the request's Twilio signature against the
// shared auth token. The canonical URL and form parameters are rebuilt
// exactly as Twilio signed them; a missing header fails before any HMAC
// is computed. The token is never logged.
func VerifySignature(authToken string, req *lambda.Request) error {
	uri := CanonicalURL(req)
	logrus.WithField("uri", uri).Info("Validating Twilio signature")

	signature := req.Header(SignatureHeader)
	if signature == "" {
		return ErrMissingSignature
	}

	params, err := parseFormParams(string(req.Body))
	if err != nil {
		return fmt.Errorf("failed to parse form body: %w", err)
	}

	validator := twclient.NewRequestValidator(authToken)
	if !validator.Validate(uri, params, signature) {
		return ErrInvalidSignature
	}

	logrus.Info("Twilio request signature is valid")
	return nil
}

// CanonicalURL reconstructs the externally visible URL Twilio signed:
// fixed https scheme, the function URL domain, the request path, and the
// query parameters in the order the transport delivered them.
func CanonicalURL(req *lambda.Request) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(req.Domain)
	b.WriteString(req.Path)
	if qs := canonicalQuery(req); qs != "" {
		b.WriteString("?")
		b.WriteString(qs)
	}
	return b.String()
}

// canonicalQuery rebuilds the query string as decoded k=v pairs joined
// by &, preserving delivery order. No re-sorting.
func canonicalQuery(req *lambda.Request) string {
	if req.RawQuery == "" {
		if len(req.QueryParams) == 0 {
			return ""
		}
		pairs := make([]string, 0, len(req.QueryParams))
		for k, v := range req.QueryParams {
			pairs = append(pairs, k+"="+v)
		}
		return strings.Join(pairs, "&")
	}

	var pairs []string
	for _, kv := range strings.Split(req.RawQuery, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		pairs = append(pairs, unescape(k)+"="+unescape(v))
	}
	return strings.Join(pairs, "&")
}

// parseFormParams decodes a url-encoded form body into the map the
// request validator expects. Blank values are kept; for repeated keys
// the last value wins, matching the validator's map semantics.
func parseFormParams(body string) (map[string]string, error) {
	params := make(map[string]string)
	if body == "" {
		return params, nil
	}
	for _, kv := range strings.Split(body, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		params[key] = value
	}
	return params, nil
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}
