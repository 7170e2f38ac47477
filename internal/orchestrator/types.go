package orchestrator

import (
	"context"

	"github.com/alvesdmateus/auto-deployer/internal/analyzer"
	"github.com/alvesdmateus/auto-deployer/internal/fetcher"
)

// DeploymentRequest is the immutable input of a deploy run.
type DeploymentRequest struct {
	RepoURL             string
	IntentText          string
	ImageRepositoryName string
	Region              string
}

// DestroyRequest is the immutable input of a destroy run.
type DestroyRequest struct {
	RepoURL             string
	ImageRepositoryName string
	Region              string
}

// ProvisioningResult is the terminal artifact of a deploy run. ServiceURL is
// empty when provisioning succeeded but exposed no service_url output.
type ProvisioningResult struct {
	ServiceURL string
	RawOutputs map[string]string
}

// IdentityResolver resolves the caller's cloud account context.
type IdentityResolver interface {
	AccountID(ctx context.Context) (string, error)
}

// SourceFetcher obtains a local working copy of a remote repository.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Snapshot, error)
}

// FrameworkDetector inspects a snapshot and identifies its framework.
type FrameworkDetector interface {
	Detect(path string) (*analyzer.FrameworkDescriptor, error)
}

// DescriptorGenerator writes a build descriptor into the snapshot.
type DescriptorGenerator interface {
	GenerateAndWrite(descriptor *analyzer.FrameworkDescriptor, snapshotPath string) (string, error)
}

// ImageEngine builds container images from a snapshot.
type ImageEngine interface {
	Build(ctx context.Context, sourcePath, imageTag string) error
}

// RegistryClient handles registry authentication and image publishing.
type RegistryClient interface {
	Authenticate(ctx context.Context) error
	Push(ctx context.Context, imageTag string) error
	ImageTag(repositoryName, revision string) string
}

// Provisioner wraps the declarative infrastructure tool's lifecycle over one
// service-scoped working directory.
type Provisioner interface {
	Init(ctx context.Context) error
	Apply(ctx context.Context, variables map[string]string) error
	Destroy(ctx context.Context, variables map[string]string) error
	Outputs(ctx context.Context) (map[string]string, error)
}

// ProvisionerFactory creates a Provisioner scoped to a service name. The
// factory owns the per-service working directory isolation.
type ProvisionerFactory func(serviceName string) (Provisioner, error)
