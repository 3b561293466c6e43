package server

import (
	"context"
	"fmt"

	"twilio-webhook-api/internal/config"
	"twilio-webhook-api/internal/handlers"
	"twilio-webhook-api/internal/paramstore"
	"twilio-webhook-api/internal/twilio"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Params paramstore.Retriever
	Router *handlers.Router
}

// NewContainer creates a new dependency injection container. It is built
// once per process (cold start for the Lambda surface); per-invocation
// state stays out of it.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	store, err := paramstore.New(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize parameter store: %w", err)
	}
	return NewContainerWithParams(cfg, store), nil
}

// NewContainerWithParams wires the container around an existing
// parameter retriever. Tests use this with a fake.
func NewContainerWithParams(cfg *config.Config, params paramstore.Retriever) *Container {
	clientFactory := func(accountSID, authToken string) twilio.CallAPI {
		return twilio.NewClient(accountSID, authToken, cfg.Twilio.HTTPTimeout)
	}

	webhookHandler := handlers.NewWebhookHandler(cfg, params)
	monitorHandler := handlers.NewMonitorHandler(cfg, params, clientFactory)

	return &Container{
		Config: cfg,
		Params: params,
		Router: handlers.NewRouter(webhookHandler, monitorHandler),
	}
}
