package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"twilio-webhook-api/pkg/lambda"
)

// Router dispatches one inbound event to exactly one handler. It is
// constructed once at process start and holds no mutable state.
type Router struct {
	webhook *WebhookHandler
	monitor *MonitorHandler
}

// NewRouter creates the route table over the handler set.
func NewRouter(webhook *WebhookHandler, monitor *MonitorHandler) *Router {
	return &Router{webhook: webhook, monitor: monitor}
}

// Dispatch routes the request and maps handler errors to structured
// error responses. Status codes are applied here and nowhere else.
func (r *Router) Dispatch(ctx context.Context, req *lambda.Request) *lambda.Response {
	resp, err := r.route(ctx, req)
	if err != nil {
		apiErr := AsAPIError(err)
		return errorResponse(apiErr.Status, apiErr.Message)
	}
	return resp
}

func (r *Router) route(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	switch {
	case req.Method == http.MethodGet && req.Path == "/health":
		return r.webhook.HandleHealth(ctx, req)
	case req.Method == http.MethodPost && req.Path == "/transfer-call":
		return r.webhook.HandleTransferCall(ctx, req)
	case req.Method == http.MethodPost && strings.HasPrefix(req.Path, "/incoming-call/"):
		setPathParam(req, "stem", strings.TrimPrefix(req.Path, "/incoming-call/"))
		return r.webhook.HandleIncomingCall(ctx, req)
	case req.Method == http.MethodPost && strings.HasPrefix(req.Path, "/process-digits/"):
		setPathParam(req, "target", strings.TrimPrefix(req.Path, "/process-digits/"))
		return r.webhook.HandleProcessDigits(ctx, req)
	case req.Method == http.MethodPost && strings.HasPrefix(req.Path, "/confirm-digits/"):
		setPathParam(req, "target", strings.TrimPrefix(req.Path, "/confirm-digits/"))
		return r.webhook.HandleConfirmDigits(ctx, req)
	case req.Method == http.MethodGet && strings.HasPrefix(req.Path, "/monitor-call/"):
		setPathParam(req, "sid", strings.TrimPrefix(req.Path, "/monitor-call/"))
		return r.monitor.HandleMonitorCall(ctx, req)
	case req.Method == http.MethodGet && req.Path == "/batch-monitor-calls":
		return r.monitor.HandleBatchMonitorCalls(ctx, req)
	default:
		return errorResponse(http.StatusNotFound, "Not found"), nil
	}
}

func setPathParam(req *lambda.Request, name, value string) {
	if req.PathParams == nil {
		req.PathParams = make(map[string]string, 1)
	}
	req.PathParams[name] = value
}

func errorResponse(status int, message string) *lambda.Response {
	body, _ := json.Marshal(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
	return &lambda.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": contentTypeJSON},
		Body:       body,
	}
}
