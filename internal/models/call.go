package models

// CallRecord is the whitelisted view of a provider call record exposed
// by the monitoring endpoints. Fields pass through verbatim.
type CallRecord struct {
	Sid           string `json:"sid"`
	From          string `json:"from"`
	To            string `json:"to"`
	Status        string `json:"status"`
	Direction     string `json:"direction"`
	Duration      string `json:"duration"`
	Price         string `json:"price"`
	PriceUnit     string `json:"price_unit"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AnsweredBy    string `json:"answered_by"`
	ForwardedFrom string `json:"forwarded_from"`
	CallerName    string `json:"caller_name"`
	ParentCallSid string `json:"parent_call_sid"`
	QueueTime     string `json:"queue_time"`
}

// BatchMonitorResponse is the payload of the batch call listing.
// NextPageToken is null when the provider reports no further page.
type BatchMonitorResponse struct {
	Calls         []CallRecord `json:"calls"`
	Count         int          `json:"count"`
	NextPageToken *string      `json:"next_page_token"`
}

// HealthResponse is the fixed health check payload.
type HealthResponse struct {
	Message string `json:"message"`
}
