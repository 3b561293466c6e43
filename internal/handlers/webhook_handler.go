package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nyaruka/phonenumbers"
	"github.com/sirupsen/logrus"

	"twilio-webhook-api/internal/config"
	"twilio-webhook-api/internal/models"
	"twilio-webhook-api/internal/paramstore"
	"twilio-webhook-api/internal/twilio"
	"twilio-webhook-api/internal/twiml"
	"twilio-webhook-api/pkg/lambda"
)

// WebhookHandler serves the Twilio-facing call-flow endpoints.
type WebhookHandler struct {
	cfg    *config.Config
	params paramstore.Retriever
}

// NewWebhookHandler creates a new call-flow handler.
func NewWebhookHandler(cfg *config.Config, params paramstore.Retriever) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, params: params}
}

// HandleHealth reports that the function is running.
func (h *WebhookHandler) HandleHealth(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return jsonResponse(http.StatusOK, models.HealthResponse{Message: "The function is running!"})
}

// HandleTransferCall branches on the gathered DTMF digit: "1" connects
// the caller to the media stream, "2" dials the operator, anything else
// hangs up.
func (h *WebhookHandler) HandleTransferCall(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	digits := req.Query("digits")
	if digits == "" {
		message := "Digits not found in the request body"
		logrus.Error(message)
		return nil, BadRequest(message)
	}

	countryCode := req.Query("country_code")
	if countryCode == "" {
		countryCode = h.cfg.Twilio.DefaultCountryCode
	}

	names := []string{
		h.cfg.ParameterPath(paramTwilioAuthToken),
		h.cfg.ParameterPath(paramMediaAPIURL),
		h.cfg.ParameterPath(paramOperatorNumber),
	}
	parameters, err := h.params.Retrieve(ctx, names...)
	if err != nil {
		logrus.WithError(err).Error("Failed to retrieve parameters")
		return nil, Internal("Invalid parameter configuration: "+err.Error(), err)
	}

	if err := twilio.VerifySignature(parameters[names[0]], req); err != nil {
		return nil, classifySignatureError(err)
	}
	logrus.Info("Call transfer")

	var doc *twiml.Document
	switch digits {
	case dtmfVoiceAssistant:
		doc, err = h.connectToMediaStream(req, parameters[names[1]])
	case dtmfOperatorTransfer:
		doc, err = h.dialOperator(parameters[names[2]], countryCode)
	default:
		doc, err = twiml.Load(twiml.TemplateHangup)
	}
	if err != nil {
		return nil, err
	}

	body, err := doc.String()
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	return xmlResponse(body), nil
}

func (h *WebhookHandler) connectToMediaStream(req *lambda.Request, mediaAPIURL string) (*twiml.Document, error) {
	caller, err := fetchCallerPhoneNumber(req)
	if err != nil {
		return nil, err
	}
	doc, err := twiml.Load(twiml.TemplateConnect)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	stream, err := doc.Find(twiml.PathConnectStream)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetAttr(stream, "url", mediaAPIURL)
	callerParam, err := twiml.FindIn(stream, twiml.PathCallerParameter)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetAttr(callerParam, "value", caller)
	return doc, nil
}

func (h *WebhookHandler) dialOperator(operatorNumber, countryCode string) (*twiml.Document, error) {
	doc, err := twiml.Load(twiml.TemplateDial)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	dial, err := doc.Find(twiml.PathDial)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	number, err := phonenumbers.Parse(operatorNumber, countryCode)
	if err != nil {
		return nil, Internal("Failed to parse operator phone number: "+err.Error(), err)
	}
	twiml.SetText(dial, phonenumbers.Format(number, phonenumbers.E164))
	return doc, nil
}

// HandleIncomingCall answers a new call with the TwiML template named by
// the path, mutated for the template-specific callback URLs.
func (h *WebhookHandler) HandleIncomingCall(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	stem := req.PathParams["stem"]
	if !twiml.Exists(stem) {
		message := "Invalid TwiML file: " + twiml.TemplateFile(stem)
		logrus.Error(message)
		return nil, BadRequest(message)
	}

	caller, err := fetchCallerPhoneNumber(req)
	if err != nil {
		return nil, err
	}

	names := []string{
		h.cfg.ParameterPath(paramTwilioAuthToken),
		h.cfg.ParameterPath(paramMediaAPIURL),
		h.cfg.ParameterPath(paramWebhookAPIURL),
	}
	parameters, err := h.params.Retrieve(ctx, names...)
	if err != nil {
		logrus.WithError(err).Error("Failed to retrieve parameters")
		return nil, Internal("Invalid parameter configuration: "+err.Error(), err)
	}

	if err := twilio.VerifySignature(parameters[names[0]], req); err != nil {
		return nil, classifySignatureError(err)
	}

	return h.respondToCall(stem, caller, parameters[names[1]], parameters[names[2]])
}

func (h *WebhookHandler) respondToCall(stem, caller, mediaAPIURL, webhookAPIURL string) (*lambda.Response, error) {
	logrus.WithField("template", stem).Info("Responding to call")
	doc, err := twiml.Load(stem)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}

	switch stem {
	case twiml.TemplateConnect:
		stream, err := doc.Find(twiml.PathConnectStream)
		if err != nil {
			return nil, Internal(err.Error(), err)
		}
		twiml.SetAttr(stream, "url", mediaAPIURL)
		callerParam, err := doc.Find(twiml.PathStreamCallerParam)
		if err != nil {
			return nil, Internal(err.Error(), err)
		}
		twiml.SetAttr(callerParam, "value", caller)

	case twiml.TemplateGather:
		gather, err := doc.Find(twiml.PathGather)
		if err != nil {
			return nil, Internal(err.Error(), err)
		}
		base, err := url.Parse(webhookAPIURL)
		if err != nil {
			return nil, Internal("Invalid webhook API URL: "+err.Error(), err)
		}
		transferURL := "https://" + base.Host + "/transfer-call"
		logrus.WithField("transfer_api_url", transferURL).Info("Gather action set")
		twiml.SetAttr(gather, "action", transferURL)

	case twiml.TemplateBirthdate:
		gather, err := doc.Find(twiml.PathGather)
		if err != nil {
			return nil, Internal(err.Error(), err)
		}
		base, err := url.Parse(webhookAPIURL)
		if err != nil {
			return nil, Internal("Invalid webhook API URL: "+err.Error(), err)
		}
		processURL := "https://" + base.Host + "/process-digits/birthdate"
		logrus.WithField("process_birthdate_url", processURL).Info("Gather action set")
		twiml.SetAttr(gather, "action", processURL)

		// Retry redirect back to this entry point when the webhook base
		// URL carries a path component.
		if base.Path != "" {
			redirect, err := doc.Find(twiml.PathRedirect)
			if err != nil {
				return nil, Internal(err.Error(), err)
			}
			twiml.SetText(redirect, "https://"+base.Host+base.Path)
		}
	}

	body, err := doc.String()
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	return xmlResponse(body), nil
}
