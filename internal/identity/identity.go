package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
)

// Resolver resolves the caller's AWS account context.
type Resolver struct {
	stsClient *sts.Client
	logger    zerolog.Logger
}

// NewResolver creates a resolver bound to the given region.
func NewResolver(ctx context.Context, region string, logger zerolog.Logger) (*Resolver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Resolver{
		stsClient: sts.NewFromConfig(cfg),
		logger:    logger.With().Str("component", "identity").Logger(),
	}, nil
}

// AccountID returns the AWS account ID of the current credentials. Absent or
// invalid credentials fail here, before any pipeline work starts.
func (r *Resolver) AccountID(ctx context.Context) (string, error) {
	output, err := r.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("could not determine AWS account ID: %w", err)
	}

	accountID := aws.ToString(output.Account)
	r.logger.Info().Str("account_id", accountID).Msg("Resolved AWS caller identity")

	return accountID, nil
}
