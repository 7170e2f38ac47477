package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/docker/docker/api/types/image"
	dockerregistry "github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// ECRClient implements Client for Amazon Elastic Container Registry.
type ECRClient struct {
	region       string
	ecrClient    *ecr.Client
	dockerClient *client.Client
	logger       zerolog.Logger

	host string
	auth dockerregistry.AuthConfig
}

// NewECRClient creates a new ECR registry client.
func NewECRClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*ECRClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &ECRClient{
		region:       cfg.Region,
		ecrClient:    ecr.NewFromConfig(awsCfg),
		dockerClient: cli,
		logger:       logger.With().Str("component", "registry").Logger(),
	}, nil
}

// Authenticate exchanges AWS credentials for a short-lived ECR authorization
// token and records the registry host.
func (c *ECRClient) Authenticate(ctx context.Context) error {
	c.logger.Info().Str("region", c.region).Msg("Authenticating with Amazon ECR")

	output, err := c.ecrClient.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return ErrAuthenticationFailed{Registry: "ecr", Err: err}
	}
	if len(output.AuthorizationData) == 0 {
		return ErrAuthenticationFailed{Registry: "ecr", Err: fmt.Errorf("no authorization data returned")}
	}

	data := output.AuthorizationData[0]

	decoded, err := base64.StdEncoding.DecodeString(*data.AuthorizationToken)
	if err != nil {
		return ErrAuthenticationFailed{Registry: "ecr", Err: fmt.Errorf("failed to decode authorization token: %w", err)}
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return ErrAuthenticationFailed{Registry: "ecr", Err: fmt.Errorf("malformed authorization token")}
	}

	host := strings.TrimPrefix(*data.ProxyEndpoint, "https://")

	c.host = host
	c.auth = dockerregistry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: host,
	}

	c.logger.Info().Str("registry", host).Msg("Successfully authenticated with ECR")
	return nil
}

// Endpoint returns the registry host, e.g. 123456789012.dkr.ecr.us-east-2.amazonaws.com.
func (c *ECRClient) Endpoint() string {
	return c.host
}

// ImageTag builds the full image reference for a repository and revision.
func (c *ECRClient) ImageTag(repositoryName, revision string) string {
	return fmt.Sprintf("%s/%s:%s", c.host, repositoryName, revision)
}

// Push pushes an image to ECR, streaming the engine's progress output.
func (c *ECRClient) Push(ctx context.Context, imageTag string) error {
	c.logger.Info().Str("image_tag", imageTag).Msg("Pushing image to ECR")

	if c.host == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	encodedAuth, err := encodeAuthConfig(c.auth)
	if err != nil {
		return fmt.Errorf("failed to encode auth config: %w", err)
	}

	pushResponse, err := c.dockerClient.ImagePush(ctx, imageTag, image.PushOptions{
		RegistryAuth: encodedAuth,
	})
	if err != nil {
		return ErrPushFailed{ImageTag: imageTag, Err: err}
	}
	defer pushResponse.Close()

	if err := c.streamPushOutput(ctx, pushResponse); err != nil {
		return ErrPushFailed{ImageTag: imageTag, Err: err}
	}

	c.logger.Info().Str("image_tag", imageTag).Msg("Image pushed successfully")
	return nil
}

// encodeAuthConfig encodes auth config for Docker registry authentication.
func encodeAuthConfig(authConfig dockerregistry.AuthConfig) (string, error) {
	authJSON, err := json.Marshal(authConfig)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(authJSON), nil
}

// streamPushOutput consumes the engine's JSON-per-line push progress while the
// push runs, surfacing the engine's own error message on failure.
func (c *ECRClient) streamPushOutput(ctx context.Context, reader io.Reader) error {
	decoder := json.NewDecoder(reader)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg struct {
			Status      string `json:"status"`
			Error       string `json:"error"`
			ErrorDetail struct {
				Message string `json:"message"`
			} `json:"errorDetail"`
		}

		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode push output: %w", err)
		}

		if msg.Error != "" {
			if msg.ErrorDetail.Message != "" {
				return fmt.Errorf("push error: %s", msg.ErrorDetail.Message)
			}
			return fmt.Errorf("push error: %s", msg.Error)
		}

		if msg.Status != "" {
			c.logger.Debug().Str("output", strings.TrimSpace(msg.Status)).Msg("Push output")
		}
	}
}
