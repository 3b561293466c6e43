package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"twilio-webhook-api/internal/config"
	"twilio-webhook-api/internal/models"
	"twilio-webhook-api/internal/paramstore"
	"twilio-webhook-api/internal/twilio"
	"twilio-webhook-api/pkg/lambda"
)

const (
	defaultBatchLimit = 100
	maxBatchLimit     = 1000
)

// MonitorHandler serves the read-only call inspection endpoints.
type MonitorHandler struct {
	cfg       *config.Config
	params    paramstore.Retriever
	newClient twilio.ClientFactory
	validate  *validator.Validate
}

// NewMonitorHandler creates a new call inspection handler.
func NewMonitorHandler(cfg *config.Config, params paramstore.Retriever, newClient twilio.ClientFactory) *MonitorHandler {
	return &MonitorHandler{
		cfg:       cfg,
		params:    params,
		newClient: newClient,
		validate:  validator.New(),
	}
}

// HandleMonitorCall fetches a single call record by SID.
func (h *MonitorHandler) HandleMonitorCall(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	callSid := req.PathParams["sid"]

	names := []string{
		h.cfg.ParameterPath(paramTwilioAccountSid),
		h.cfg.ParameterPath(paramTwilioAuthToken),
	}
	parameters, err := h.params.Retrieve(ctx, names...)
	if err != nil {
		message := "Invalid parameter configuration: " + err.Error()
		logrus.WithError(err).Error(message)
		return nil, Internal(message, err)
	}

	api := h.newClient(parameters[names[0]], parameters[names[1]])
	call, err := api.FetchCall(callSid)
	if err != nil {
		return nil, classifyProviderError(err, callSid)
	}

	logrus.WithField("call_sid", callSid).Info("Call details fetched successfully")
	return jsonResponse(http.StatusOK, call)
}

// HandleBatchMonitorCalls lists call records in a date range, with
// optional status/direction filters and opaque page-token continuation.
func (h *MonitorHandler) HandleBatchMonitorCalls(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	params, err := h.validateBatchMonitorParams(req.QueryParams)
	if err != nil {
		return nil, err
	}

	names := []string{
		h.cfg.ParameterPath(paramTwilioAccountSid),
		h.cfg.ParameterPath(paramTwilioAuthToken),
	}
	secrets, err := h.params.Retrieve(ctx, names...)
	if err != nil {
		message := "Invalid parameter configuration: " + err.Error()
		logrus.WithError(err).Error(message)
		return nil, Internal(message, err)
	}

	api := h.newClient(secrets[names[0]], secrets[names[1]])
	page, err := api.PageCalls(twilio.ListParams{
		StartTimeAfter:  params.startTime,
		StartTimeBefore: params.endTime,
		Status:          params.Status,
		Limit:           params.Limit,
		PageToken:       params.PageToken,
	})
	if err != nil {
		return nil, classifyProviderError(err, "")
	}

	// The provider's listing API has no direction filter; apply it here.
	calls := make([]models.CallRecord, 0, len(page.Calls))
	for _, call := range page.Calls {
		if params.Direction != "" && call.Direction != params.Direction {
			continue
		}
		calls = append(calls, call)
	}

	var nextPageToken *string
	if token := twilio.NextPageToken(page.NextPageURL); token != "" {
		nextPageToken = &token
	}

	logrus.WithFields(logrus.Fields{
		"start_date": params.StartDate,
		"end_date":   params.EndDate,
		"count":      len(calls),
	}).Info("Batch call monitoring completed")

	return jsonResponse(http.StatusOK, models.BatchMonitorResponse{
		Calls:         calls,
		Count:         len(calls),
		NextPageToken: nextPageToken,
	})
}

// batchMonitorParams is the validated query parameter set of the batch
// listing endpoint.
type batchMonitorParams struct {
	StartDate string `validate:"required"`
	EndDate   string `validate:"required"`
	Limit     int    `validate:"min=1,max=1000"`
	Status    string
	Direction string
	PageToken string

	startTime time.Time
	endTime   time.Time
}

func (h *MonitorHandler) validateBatchMonitorParams(query map[string]string) (*batchMonitorParams, error) {
	params := &batchMonitorParams{
		StartDate: query["start_date"],
		EndDate:   query["end_date"],
		Status:    query["status"],
		Direction: query["direction"],
		PageToken: query["page_token"],
		Limit:     defaultBatchLimit,
	}
	if raw := query["limit"]; raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			message := fmt.Sprintf("Limit must be between 1 and %d", maxBatchLimit)
			logrus.Error(message)
			return nil, BadRequest(message)
		}
		params.Limit = limit
	}

	if err := h.validate.Struct(params); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			var message string
			switch fieldErrors[0].Field() {
			case "StartDate", "EndDate":
				message = "Both start_date and end_date are required parameters"
			case "Limit":
				message = fmt.Sprintf("Limit must be between 1 and %d", maxBatchLimit)
			default:
				message = fieldErrors[0].Error()
			}
			logrus.Error(message)
			return nil, BadRequest(message)
		}
		return nil, Internal(err.Error(), err)
	}

	startTime, err := time.Parse(time.RFC3339, params.StartDate)
	if err != nil {
		message := "Invalid date format: " + err.Error()
		logrus.WithError(err).Error(message)
		return nil, BadRequest(message)
	}
	endTime, err := time.Parse(time.RFC3339, params.EndDate)
	if err != nil {
		message := "Invalid date format: " + err.Error()
		logrus.WithError(err).Error(message)
		return nil, BadRequest(message)
	}
	if startTime.After(endTime) {
		message := "start_date must be before or equal to end_date"
		logrus.Error(message)
		return nil, BadRequest(message)
	}
	params.startTime = startTime
	params.endTime = endTime

	return params, nil
}

// classifyProviderError maps Twilio REST errors: a missing record is a
// client error, any other provider failure is internal.
func classifyProviderError(err error, callSid string) *APIError {
	switch {
	case twilio.IsNotFound(err):
		message := "Call not found: " + callSid
		logrus.WithError(err).Error(message)
		return BadRequest(message)
	case twilio.IsAPIError(err):
		message := "Twilio API error: " + twilio.APIErrorMessage(err)
		logrus.WithError(err).Error(message)
		return Internal(message, err)
	default:
		message := "Failed to fetch call details: " + err.Error()
		logrus.WithError(err).Error(message)
		return Internal(message, err)
	}
}
