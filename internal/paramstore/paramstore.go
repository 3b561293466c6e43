// Package paramstore retrieves decrypted secrets and configuration from
// AWS Systems Manager Parameter Store. Values are fetched fresh on every
// invocation; only the underlying client survives across invocations.
package paramstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"
)

// Retriever fetches decrypted parameters by fully qualified name.
type Retriever interface {
	Retrieve(ctx context.Context, names ...string) (map[string]string, error)
}

// API is the slice of the SSM client Store depends on.
type API interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Store implements Retriever against SSM Parameter Store.
type Store struct {
	client API
}

// New builds a Store using the default AWS credential chain.
func New(ctx context.Context, region string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &Store{client: ssm.NewFromConfig(cfg)}, nil
}

// NewWithClient builds a Store around an existing SSM API client.
func NewWithClient(client API) *Store {
	return &Store{client: client}
}

// Retrieve fetches all named parameters with decryption. Retrieval is
// all-or-nothing: any invalid name fails the whole batch.
func (s *Store) Retrieve(ctx context.Context, names ...string) (map[string]string, error) {
	out, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve parameters: %w", err)
	}
	if len(out.InvalidParameters) > 0 {
		return nil, fmt.Errorf("invalid parameters: %v", out.InvalidParameters)
	}

	values := make(map[string]string, len(out.Parameters))
	for _, p := range out.Parameters {
		values[aws.ToString(p.Name)] = aws.ToString(p.Value)
	}

	logrus.WithField("names", names).Info("Parameters retrieved from Parameter Store")
	return values, nil
}
