package twilio

import (
	"errors"
	"net/url"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"twilio-webhook-api/internal/models"
)

// Twilio error code for a call record that does not exist.
const errorCodeCallNotFound = 20404

// ListParams filters one page of call records.
type ListParams struct {
	StartTimeAfter  time.Time
	StartTimeBefore time.Time
	Status          string
	Limit           int
	PageToken       string
}

// CallPage is one page of call records plus the provider's next-page URL.
type CallPage struct {
	Calls       []models.CallRecord
	NextPageURL string
}

// CallAPI is the slice of the Twilio REST API the monitoring handlers use.
type CallAPI interface {
	FetchCall(sid string) (*models.CallRecord, error)
	PageCalls(params ListParams) (*CallPage, error)
}

// ClientFactory builds a CallAPI for an account's credentials. Handlers
// hold a factory because credentials are fetched per invocation.
type ClientFactory func(accountSID, authToken string) CallAPI

type restCallAPI struct {
	client *twilio.RestClient
}

// NewClient returns a CallAPI backed by the Twilio REST API, with a
// bounded HTTP timeout on outbound requests.
func NewClient(accountSID, authToken string, timeout time.Duration) CallAPI {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	rc.Client.SetTimeout(timeout)
	return &restCallAPI{client: rc}
}

func (c *restCallAPI) FetchCall(sid string) (*models.CallRecord, error) {
	call, err := c.client.Api.FetchCall(sid, &openapi.FetchCallParams{})
	if err != nil {
		return nil, err
	}
	record := recordFromCall(call)
	return &record, nil
}

func (c *restCallAPI) PageCalls(p ListParams) (*CallPage, error) {
	params := &openapi.ListCallParams{}
	params.SetStartTimeAfter(p.StartTimeAfter)
	params.SetStartTimeBefore(p.StartTimeBefore)
	if p.Status != "" {
		params.SetStatus(p.Status)
	}
	if p.Limit > 0 {
		params.SetPageSize(p.Limit)
	}

	page, err := c.client.Api.PageCall(params, p.PageToken, "")
	if err != nil {
		return nil, err
	}

	calls := make([]models.CallRecord, 0, len(page.Calls))
	for i := range page.Calls {
		calls = append(calls, recordFromCall(&page.Calls[i]))
	}
	return &CallPage{Calls: calls, NextPageURL: deref(page.NextPageUri)}, nil
}

func recordFromCall(call *openapi.ApiV2010Call) models.CallRecord {
	return models.CallRecord{
		Sid:           deref(call.Sid),
		From:          deref(call.From),
		To:            deref(call.To),
		Status:        deref(call.Status),
		Direction:     deref(call.Direction),
		Duration:      deref(call.Duration),
		Price:         deref(call.Price),
		PriceUnit:     deref(call.PriceUnit),
		StartTime:     deref(call.StartTime),
		EndTime:       deref(call.EndTime),
		AnsweredBy:    deref(call.AnsweredBy),
		ForwardedFrom: deref(call.ForwardedFrom),
		CallerName:    deref(call.CallerName),
		ParentCallSid: deref(call.ParentCallSid),
		QueueTime:     deref(call.QueueTime),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsNotFound reports whether err is the provider's call-not-found error.
func IsNotFound(err error) bool {
	var restErr *twclient.TwilioRestError
	return errors.As(err, &restErr) && restErr.Code == errorCodeCallNotFound
}

// IsAPIError reports whether err came back from the Twilio REST API.
func IsAPIError(err error) bool {
	var restErr *twclient.TwilioRestError
	return errors.As(err, &restErr)
}

// APIErrorMessage returns the provider's message for a REST API error,
// or the plain error text otherwise.
func APIErrorMessage(err error) string {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return restErr.Message
	}
	return err.Error()
}

// NextPageToken extracts the opaque PageToken parameter from the
// provider's next-page URL. Empty when there is no further page.
func NextPageToken(nextPageURL string) string {
	if nextPageURL == "" {
		return ""
	}
	u, err := url.Parse(nextPageURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("PageToken")
}
