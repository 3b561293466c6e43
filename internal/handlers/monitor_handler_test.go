package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	twclient "github.com/twilio/twilio-go/client"

	"twilio-webhook-api/internal/models"
	"twilio-webhook-api/internal/twilio"
	"twilio-webhook-api/pkg/lambda"
)

type fakeCallAPI struct {
	call      *models.CallRecord
	fetchErr  error
	page      *twilio.CallPage
	pageErr   error
	gotSid    string
	gotParams twilio.ListParams
}

func (f *fakeCallAPI) FetchCall(sid string) (*models.CallRecord, error) {
	f.gotSid = sid
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.call, nil
}

func (f *fakeCallAPI) PageCalls(params twilio.ListParams) (*twilio.CallPage, error) {
	f.gotParams = params
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.page, nil
}

func newTestMonitorHandler(api *fakeCallAPI, params *fakeRetriever) (*MonitorHandler, *[2]string) {
	var creds [2]string
	factory := func(accountSID, authToken string) twilio.CallAPI {
		creds[0] = accountSID
		creds[1] = authToken
		return api
	}
	return NewMonitorHandler(testConfig(), params, factory), &creds
}

func monitorRequest(sid string) *lambda.Request {
	return &lambda.Request{
		Method:     "GET",
		Path:       "/monitor-call/" + sid,
		PathParams: map[string]string{"sid": sid},
	}
}

func batchRequest(query map[string]string) *lambda.Request {
	return &lambda.Request{
		Method:      "GET",
		Path:        "/batch-monitor-calls",
		QueryParams: query,
	}
}

func TestHandleMonitorCall(t *testing.T) {
	api := &fakeCallAPI{call: &models.CallRecord{
		Sid:       "CA0001",
		From:      "+15551234567",
		To:        "+15557654321",
		Status:    "completed",
		Direction: "inbound",
		Duration:  "42",
	}}
	h, creds := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	resp, err := h.HandleMonitorCall(context.Background(), monitorRequest("CA0001"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var record models.CallRecord
	if err := json.Unmarshal(resp.Body, &record); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if record.Sid != "CA0001" || record.Status != "completed" {
		t.Errorf("Unexpected record: %+v", record)
	}

	if api.gotSid != "CA0001" {
		t.Errorf("Expected fetch for CA0001, got %q", api.gotSid)
	}
	if creds[0] != testAccountSid || creds[1] != testAuthToken {
		t.Errorf("Client built with wrong credentials: %v", creds)
	}
}

func TestHandleMonitorCallNotFound(t *testing.T) {
	api := &fakeCallAPI{fetchErr: &twclient.TwilioRestError{Code: 20404, Status: 404}}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	_, err := h.HandleMonitorCall(context.Background(), monitorRequest("CA9999"))
	assertAPIError(t, err, 400, "Call not found: CA9999")
}

func TestHandleMonitorCallProviderError(t *testing.T) {
	api := &fakeCallAPI{fetchErr: &twclient.TwilioRestError{Code: 20003, Status: 401, Message: "Authenticate"}}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	_, err := h.HandleMonitorCall(context.Background(), monitorRequest("CA0001"))
	assertAPIError(t, err, 500, "Twilio API error: Authenticate")
}

func TestHandleMonitorCallTransportError(t *testing.T) {
	api := &fakeCallAPI{fetchErr: errors.New("connection refused")}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	_, err := h.HandleMonitorCall(context.Background(), monitorRequest("CA0001"))
	assertAPIError(t, err, 500, "Failed to fetch call details: connection refused")
}

func TestHandleMonitorCallParameterFailure(t *testing.T) {
	api := &fakeCallAPI{}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{err: errors.New("access denied")})

	_, err := h.HandleMonitorCall(context.Background(), monitorRequest("CA0001"))
	assertAPIError(t, err, 500, "")
	if !strings.Contains(err.Error(), "Invalid parameter configuration") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestHandleBatchMonitorCalls(t *testing.T) {
	api := &fakeCallAPI{page: &twilio.CallPage{
		Calls: []models.CallRecord{
			{Sid: "CA0001", Direction: "inbound"},
			{Sid: "CA0002", Direction: "outbound-dial"},
			{Sid: "CA0003", Direction: "inbound"},
		},
		NextPageURL: "/2010-04-01/Accounts/AC0001/Calls.json?PageToken=PACA0003",
	}}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	resp, err := h.HandleBatchMonitorCalls(context.Background(), batchRequest(map[string]string{
		"start_date": "2026-01-01T00:00:00Z",
		"end_date":   "2026-01-31T23:59:59Z",
		"direction":  "inbound",
		"limit":      "50",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var payload models.BatchMonitorResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if payload.Count != 2 {
		t.Errorf("Expected 2 inbound calls, got %d", payload.Count)
	}
	for _, call := range payload.Calls {
		if call.Direction != "inbound" {
			t.Errorf("Direction filter leaked %q", call.Direction)
		}
	}
	if payload.NextPageToken == nil || *payload.NextPageToken != "PACA0003" {
		t.Errorf("Expected next page token PACA0003, got %v", payload.NextPageToken)
	}

	if api.gotParams.Limit != 50 {
		t.Errorf("Expected limit 50 passed through, got %d", api.gotParams.Limit)
	}
	if api.gotParams.Status != "" {
		t.Errorf("Expected empty status filter, got %q", api.gotParams.Status)
	}
}

func TestHandleBatchMonitorCallsLastPage(t *testing.T) {
	api := &fakeCallAPI{page: &twilio.CallPage{
		Calls: []models.CallRecord{{Sid: "CA0001", Direction: "inbound"}},
	}}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	resp, err := h.HandleBatchMonitorCalls(context.Background(), batchRequest(map[string]string{
		"start_date": "2026-01-01T00:00:00Z",
		"end_date":   "2026-01-31T23:59:59Z",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var payload models.BatchMonitorResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if payload.NextPageToken != nil {
		t.Errorf("Expected no next page token, got %q", *payload.NextPageToken)
	}
	if api.gotParams.Limit != defaultBatchLimit {
		t.Errorf("Expected default limit %d, got %d", defaultBatchLimit, api.gotParams.Limit)
	}
}

func TestHandleBatchMonitorCallsValidation(t *testing.T) {
	tests := []struct {
		name        string
		query       map[string]string
		wantMessage string
	}{
		{
			name:        "missing dates",
			query:       map[string]string{},
			wantMessage: "Both start_date and end_date are required parameters",
		},
		{
			name: "missing end date",
			query: map[string]string{
				"start_date": "2026-01-01T00:00:00Z",
			},
			wantMessage: "Both start_date and end_date are required parameters",
		},
		{
			name: "limit too large",
			query: map[string]string{
				"start_date": "2026-01-01T00:00:00Z",
				"end_date":   "2026-01-31T23:59:59Z",
				"limit":      "1500",
			},
			wantMessage: "Limit must be between 1 and 1000",
		},
		{
			name: "limit not a number",
			query: map[string]string{
				"start_date": "2026-01-01T00:00:00Z",
				"end_date":   "2026-01-31T23:59:59Z",
				"limit":      "many",
			},
			wantMessage: "Limit must be between 1 and 1000",
		},
		{
			name: "limit zero",
			query: map[string]string{
				"start_date": "2026-01-01T00:00:00Z",
				"end_date":   "2026-01-31T23:59:59Z",
				"limit":      "0",
			},
			wantMessage: "Limit must be between 1 and 1000",
		},
		{
			name: "start after end",
			query: map[string]string{
				"start_date": "2026-02-01T00:00:00Z",
				"end_date":   "2026-01-01T00:00:00Z",
			},
			wantMessage: "start_date must be before or equal to end_date",
		},
	}

	api := &fakeCallAPI{}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.HandleBatchMonitorCalls(context.Background(), batchRequest(tt.query))
			assertAPIError(t, err, 400, tt.wantMessage)
		})
	}
}

func TestHandleBatchMonitorCallsBadDateFormat(t *testing.T) {
	api := &fakeCallAPI{}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	_, err := h.HandleBatchMonitorCalls(context.Background(), batchRequest(map[string]string{
		"start_date": "2026-01-01",
		"end_date":   "2026-01-31T23:59:59Z",
	}))
	assertAPIError(t, err, 400, "")
	if !strings.Contains(err.Error(), "Invalid date format") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestHandleBatchMonitorCallsProviderError(t *testing.T) {
	api := &fakeCallAPI{pageErr: &twclient.TwilioRestError{Code: 20003, Status: 401, Message: "Authenticate"}}
	h, _ := newTestMonitorHandler(api, &fakeRetriever{values: testParams()})

	_, err := h.HandleBatchMonitorCalls(context.Background(), batchRequest(map[string]string{
		"start_date": "2026-01-01T00:00:00Z",
		"end_date":   "2026-01-31T23:59:59Z",
	}))
	assertAPIError(t, err, 500, "Twilio API error: Authenticate")
}
