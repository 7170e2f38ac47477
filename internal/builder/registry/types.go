package registry

import (
	"context"
	"fmt"
)

// Config contains registry-specific configuration.
type Config struct {
	Type   string // ecr
	Region string // AWS region hosting the registry
}

// Client handles container registry operations.
type Client interface {
	// Authenticate obtains short-lived registry credentials.
	Authenticate(ctx context.Context) error

	// Push pushes an image to the registry.
	Push(ctx context.Context, imageTag string) error

	// Endpoint returns the registry host (no scheme) once authenticated.
	Endpoint() string

	// ImageTag builds a full image reference: {registry}/{repo}:{revision}.
	ImageTag(repositoryName, revision string) string
}

// ErrAuthenticationFailed is returned when registry authentication fails.
type ErrAuthenticationFailed struct {
	Registry string
	Err      error
}

func (e ErrAuthenticationFailed) Error() string {
	return fmt.Sprintf("authentication failed for registry %s: %v", e.Registry, e.Err)
}

func (e ErrAuthenticationFailed) Unwrap() error { return e.Err }

// ErrPushFailed is returned when an image push fails.
type ErrPushFailed struct {
	ImageTag string
	Err      error
}

func (e ErrPushFailed) Error() string {
	return fmt.Sprintf("failed to push image %s: %v", e.ImageTag, e.Err)
}

func (e ErrPushFailed) Unwrap() error { return e.Err }
