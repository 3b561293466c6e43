package main

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"twilio-webhook-api/internal/config"
	"twilio-webhook-api/pkg/lambda"
	"twilio-webhook-api/pkg/server"
)

var container *server.Container

func init() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	container, err = server.NewContainer(context.Background(), cfg)
	if err != nil {
		panic("Failed to initialize container: " + err.Error())
	}
}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	logrus.WithFields(logrus.Fields{
		"method": event.RequestContext.HTTP.Method,
		"path":   event.RawPath,
	}).Info("Event received")

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return events.LambdaFunctionURLResponse{
				StatusCode: http.StatusBadRequest,
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       `{"error": "Bad Request", "message": "Invalid request body encoding"}`,
			}, nil
		}
		body = decoded
	}

	req := &lambda.Request{
		Method:      event.RequestContext.HTTP.Method,
		Path:        event.RawPath,
		Domain:      event.RequestContext.DomainName,
		Headers:     event.Headers,
		QueryParams: event.QueryStringParameters,
		RawQuery:    event.RawQueryString,
		Body:        body,
	}

	resp := container.Router.Dispatch(ctx, req)
	return events.LambdaFunctionURLResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}

func main() {
	awslambda.Start(handler)
}
