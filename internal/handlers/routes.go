package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"twilio-webhook-api/pkg/lambda"
)

// SetupRoutes registers the webhook routes on the local gin server.
// Every route funnels through the same Router the Lambda entrypoint
// uses, so both surfaces share one dispatch table.
func SetupRoutes(engine *gin.Engine, router *Router) {
	handle := func(c *gin.Context) {
		req := requestFromGin(c)
		resp := router.Dispatch(c.Request.Context(), req)
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, resp.Headers["Content-Type"], resp.Body)
	}

	engine.GET("/health", handle)
	engine.POST("/transfer-call", handle)
	engine.POST("/incoming-call/:stem", handle)
	engine.POST("/process-digits/:target", handle)
	engine.POST("/confirm-digits/:target", handle)
	engine.GET("/monitor-call/:sid", handle)
	engine.GET("/batch-monitor-calls", handle)
}

// requestFromGin normalizes a gin request into the structure handlers
// consume, populated once at the boundary.
func requestFromGin(c *gin.Context) *lambda.Request {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}

	query := make(map[string]string)
	for k, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			query[k] = values[0]
		}
	}

	return &lambda.Request{
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Domain:      c.Request.Host,
		Headers:     headers,
		QueryParams: query,
		RawQuery:    c.Request.URL.RawQuery,
		Body:        body,
	}
}
