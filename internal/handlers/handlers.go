// Package handlers contains the webhook call-flow, birth date collection
// and call monitoring endpoints. Handlers are framework-agnostic: they
// take a normalized request and return a response value, and are wired
// to both the Lambda entrypoint and the local gin server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"twilio-webhook-api/internal/twilio"
	"twilio-webhook-api/pkg/lambda"
)

// Parameter Store keys, qualified per request via config.ParameterPath.
const (
	paramTwilioAuthToken  = "twilio-auth-token"
	paramTwilioAccountSid = "twilio-account-sid"
	paramMediaAPIURL      = "media-api-url"
	paramOperatorNumber   = "operator-phone-number"
	paramWebhookAPIURL    = "webhook-api-url"
)

// DTMF digits mapped by the transfer menu.
const (
	dtmfVoiceAssistant   = "1"
	dtmfOperatorTransfer = "2"
)

// Form parameter carrying the caller's phone number.
const formParamFrom = "From"

const (
	contentTypeXML  = "application/xml"
	contentTypeJSON = "application/json"
)

func xmlResponse(body string) *lambda.Response {
	return &lambda.Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": contentTypeXML},
		Body:       []byte(body),
	}
}

func jsonResponse(status int, payload interface{}) (*lambda.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Internal("Failed to marshal response", err)
	}
	return &lambda.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": contentTypeJSON},
		Body:       body,
	}, nil
}

// classifySignatureError maps signature verification failures onto the
// closed error kinds: missing header is a client error, a mismatch is
// unauthorized, anything else is internal.
func classifySignatureError(err error) *APIError {
	switch {
	case errors.Is(err, twilio.ErrMissingSignature):
		logrus.WithError(err).Error("Request signature is missing")
		return BadRequest(err.Error())
	case errors.Is(err, twilio.ErrInvalidSignature):
		logrus.WithError(err).Error("Request signature is invalid")
		return Unauthorized(err.Error())
	default:
		logrus.WithError(err).Error("Signature verification failed")
		return Internal(err.Error(), err)
	}
}

// fetchCallerPhoneNumber extracts the From parameter from the decoded
// url-encoded form body. First match wins.
func fetchCallerPhoneNumber(req *lambda.Request) (string, error) {
	var caller string
	for _, kv := range strings.Split(string(req.Body), "&") {
		if !strings.Contains(kv, "=") {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		if key == formParamFrom {
			if value, err := url.QueryUnescape(v); err == nil {
				caller = value
			}
			break
		}
	}
	logrus.WithField("caller_phone_number", caller).Info("Caller phone number fetched")
	if caller == "" {
		return "", BadRequest("Call number not found in the request body")
	}
	return caller, nil
}

// webhookURLs are the callback URLs round-tripped through the provider
// during birth date collection.
type webhookURLs struct {
	Confirm        string
	BirthdateEntry string
}

func buildWebhookURLs(webhookAPIURL string) (webhookURLs, error) {
	u, err := url.Parse(webhookAPIURL)
	if err != nil {
		return webhookURLs{}, Internal("Invalid webhook API URL: "+err.Error(), err)
	}
	fqdn := u.Host
	return webhookURLs{
		Confirm:        "https://" + fqdn + "/confirm-digits/birthdate",
		BirthdateEntry: "https://" + fqdn + "/incoming-call/birthdate",
	}, nil
}
