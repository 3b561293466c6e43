package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"twilio-webhook-api/internal/twilio"
	"twilio-webhook-api/internal/twiml"
	"twilio-webhook-api/pkg/lambda"
)

// Length of a collected birth date: YYYYMMDD.
const birthdateDigitLength = 8

const birthdateTarget = "birthdate"

// birthdate is a split 8-digit date. Calendar validity is intentionally
// not checked at this layer; only the digit count and character set are.
type birthdate struct {
	Year  string
	Month string
	Day   string
}

func parseBirthdateDigits(digits string) (birthdate, error) {
	if len(digits) != birthdateDigitLength || !isASCIIDigits(digits) {
		return birthdate{}, BadRequest(fmt.Sprintf(
			"Invalid birth date format: %s. Expected YYYYMMDD (%d digits).",
			digits, birthdateDigitLength,
		))
	}
	return birthdate{
		Year:  digits[0:4],
		Month: digits[4:6],
		Day:   digits[6:8],
	}, nil
}

func isASCIIDigits(s string) bool {
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// HandleProcessDigits parses the gathered 8-digit birth date and asks the
// caller to confirm it. The digits round-trip to the confirmation step
// through the gather action URL.
func (h *WebhookHandler) HandleProcessDigits(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	target := req.PathParams["target"]
	if target != birthdateTarget {
		message := fmt.Sprintf("Invalid target: %s. Expected 'birthdate'.", target)
		logrus.Error(message)
		return nil, BadRequest(message)
	}

	digits := req.Query("digits")
	if digits == "" {
		message := "Birth date digits not found in the request"
		logrus.Error(message)
		return nil, BadRequest(message)
	}
	date, err := parseBirthdateDigits(digits)
	if err != nil {
		logrus.Error(err.Error())
		return nil, err
	}

	names := []string{
		h.cfg.ParameterPath(paramTwilioAuthToken),
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

	logrus.WithFields(logrus.Fields{
		"year":  date.Year,
		"month": date.Month,
		"day":   date.Day,
	}).Info("Received birth date")

	urls, err := buildWebhookURLs(parameters[names[1]])
	if err != nil {
		return nil, err
	}

	doc, err := twiml.Load(twiml.TemplateBirthdateConfirmation)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}

	say, err := doc.Find(twiml.PathSay)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetText(say, fmt.Sprintf(
		"You entered %s %s, %s as your birth date. "+
			"Press 1 to confirm, or press 2 to re-enter your birth date.",
		date.Month, date.Day, date.Year,
	))

	gather, err := doc.Find(twiml.PathGather)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetAttr(gather, "action", urls.Confirm+"?birthdate="+digits)

	redirect, err := doc.Find(twiml.PathRedirect)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetText(redirect, urls.BirthdateEntry)

	body, err := doc.String()
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	return xmlResponse(body), nil
}

// HandleConfirmDigits finalizes or restarts birth date collection based
// on the caller's confirmation digit.
func (h *WebhookHandler) HandleConfirmDigits(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	target := req.PathParams["target"]
	if target != birthdateTarget {
		message := fmt.Sprintf("Invalid target: %s. Expected 'birthdate'.", target)
		logrus.Error(message)
		return nil, BadRequest(message)
	}

	digits := req.Query("digits")
	if digits == "" {
		message := "Confirmation digits not found in the request"
		logrus.Error(message)
		return nil, BadRequest(message)
	}
	collected := req.Query("birthdate")
	if collected == "" {
		message := "Birthdate parameter not found in the request"
		logrus.Error(message)
		return nil, BadRequest(message)
	}

	names := []string{
		h.cfg.ParameterPath(paramTwilioAuthToken),
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

	urls, err := buildWebhookURLs(parameters[names[1]])
	if err != nil {
		return nil, err
	}

	var doc *twiml.Document
	switch digits {
	case "1":
		doc, err = h.confirmBirthdate(collected)
	case "2":
		logrus.Info("User chose to re-enter birth date")
		doc, err = h.retryBirthdate(urls)
	default:
		logrus.WithField("digits", digits).Warn("Invalid confirmation input")
		doc, err = h.repromptConfirmation(collected, urls)
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

func (h *WebhookHandler) confirmBirthdate(collected string) (*twiml.Document, error) {
	date, err := parseBirthdateDigits(collected)
	if err != nil {
		logrus.Error(err.Error())
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"year":  date.Year,
		"month": date.Month,
		"day":   date.Day,
	}).Info("Birth date confirmed")

	doc, err := twiml.Load(twiml.TemplateBirthdateConfirmed)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	say, err := doc.Find(twiml.PathSay)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetText(say, fmt.Sprintf(
		"Thank you. We have recorded your birth date as %s %s, %s. Goodbye!",
		date.Month, date.Day, date.Year,
	))
	return doc, nil
}

func (h *WebhookHandler) retryBirthdate(urls webhookURLs) (*twiml.Document, error) {
	doc, err := twiml.Load(twiml.TemplateBirthdateRetry)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	redirect, err := doc.Find(twiml.PathRedirect)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetText(redirect, urls.BirthdateEntry)
	return doc, nil
}

func (h *WebhookHandler) repromptConfirmation(collected string, urls webhookURLs) (*twiml.Document, error) {
	doc, err := twiml.Load(twiml.TemplateBirthdateInvalidInput)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	gather, err := doc.Find(twiml.PathGather)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetAttr(gather, "action", urls.Confirm+"?birthdate="+collected)
	redirect, err := doc.Find(twiml.PathRedirect)
	if err != nil {
		return nil, Internal(err.Error(), err)
	}
	twiml.SetText(redirect, urls.BirthdateEntry)
	return doc, nil
}
