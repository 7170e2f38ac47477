package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/pipeline"
	"github.com/alvesdmateus/auto-deployer/internal/state"
)

// Coordinator sequences the deployment pipeline. Stages execute strictly in
// order, each gated on the previous succeeding; the first failure is tagged
// with its stage and aborts the run. There are no retries and no rollback on
// partial success: an image already pushed when provisioning fails stays in
// the registry.
type Coordinator struct {
	identity     IdentityResolver
	fetcher      SourceFetcher
	detector     FrameworkDetector
	generator    DescriptorGenerator
	engine       ImageEngine
	registry     RegistryClient
	provisioners ProvisionerFactory
	store        *state.Repository
	logger       zerolog.Logger
}

// NewCoordinator creates a pipeline coordinator. store may be nil when run
// history is not wanted.
func NewCoordinator(
	identity IdentityResolver,
	fetcher SourceFetcher,
	detector FrameworkDetector,
	generator DescriptorGenerator,
	engine ImageEngine,
	registry RegistryClient,
	provisioners ProvisionerFactory,
	store *state.Repository,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		identity:     identity,
		fetcher:      fetcher,
		detector:     detector,
		generator:    generator,
		engine:       engine,
		registry:     registry,
		provisioners: provisioners,
		store:        store,
		logger:       logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Deploy executes the full deployment pipeline for request.
func (c *Coordinator) Deploy(ctx context.Context, request DeploymentRequest) (*ProvisioningResult, error) {
	c.logger.Info().
		Str("repo_url", request.RepoURL).
		Str("ecr_repo", request.ImageRepositoryName).
		Str("region", request.Region).
		Msg("Starting new deployment")

	run := &state.Run{
		Operation: "deploy",
		RepoURL:   request.RepoURL,
		Region:    request.Region,
		Status:    state.StatusDeploying,
	}
	c.recordStart(ctx, run)

	accountID, err := c.identity.AccountID(ctx)
	if err != nil {
		return nil, c.fail(ctx, run, pipeline.IdentityError(err))
	}
	c.logger.Info().Str("account_id", accountID).Str("region", request.Region).Msg("Operating in AWS account")

	snapshot, err := c.fetcher.Fetch(ctx, request.RepoURL)
	if err != nil {
		return nil, c.fail(ctx, run, pipeline.FetchError(err))
	}
	// Snapshot removal is guaranteed on every exit path from here on.
	defer func() {
		if closeErr := snapshot.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Failed to clean up snapshot")
		}
	}()

	run.Revision = snapshot.Revision

	descriptor, err := c.detector.Detect(snapshot.Path)
	if err != nil {
		return nil, c.fail(ctx, run, pipeline.UnsupportedFrameworkError(err))
	}

	if _, err := c.generator.GenerateAndWrite(descriptor, snapshot.Path); err != nil {
		return nil, c.fail(ctx, run, pipeline.GenerationError(err))
	}

	if err := c.registry.Authenticate(ctx); err != nil {
		return nil, c.fail(ctx, run, pipeline.AuthError(err))
	}

	imageTag := c.registry.ImageTag(request.ImageRepositoryName, snapshot.Revision)
	run.ImageTag = imageTag

	if err := c.engine.Build(ctx, snapshot.Path, imageTag); err != nil {
		return nil, c.fail(ctx, run, pipeline.BuildError(err))
	}
	if err := c.registry.Push(ctx, imageTag); err != nil {
		return nil, c.fail(ctx, run, pipeline.PublishError(err))
	}
	c.logger.Info().Str("image_tag", imageTag).Msg("Successfully pushed image")

	serviceName := ServiceNameFor(request.RepoURL)
	run.ServiceName = serviceName

	variables := map[string]string{
		"service_name":     serviceName,
		"image_identifier": imageTag,
		"aws_account_id":   accountID,
		"aws_region":       request.Region,
		"ecr_repo_name":    request.ImageRepositoryName,
	}

	provisioner, err := c.provisioners(serviceName)
	if err != nil {
		return nil, c.fail(ctx, run, pipeline.ProvisionError(err))
	}

	c.logger.Info().Str("service_name", serviceName).Msg("Provisioning infrastructure")
	if err := provisioner.Init(ctx); err != nil {
		return nil, c.fail(ctx, run, pipeline.ProvisionError(err))
	}
	if err := provisioner.Apply(ctx, variables); err != nil {
		return nil, c.fail(ctx, run, pipeline.ProvisionError(err))
	}

	outputs, err := provisioner.Outputs(ctx)
	if err != nil {
		// Apply already succeeded; missing outputs downgrade to a warning.
		c.logger.Warn().Err(err).Msg("Could not retrieve provisioning outputs")
		outputs = map[string]string{}
	}

	result := &ProvisioningResult{
		ServiceURL: outputs["service_url"],
		RawOutputs: outputs,
	}

	if result.ServiceURL != "" {
		c.logger.Info().Str("service_url", result.ServiceURL).Msg("Deployment successful")
	} else {
		c.logger.Warn().Msg("Deployment finished, but service URL was not found in provisioning output")
	}

	run.ServiceURL = result.ServiceURL
	run.Status = state.StatusDeployed
	c.recordUpdate(ctx, run)

	return result, nil
}

// Destroy tears down the infrastructure previously provisioned for request's
// repository. It never re-fetches or re-analyzes the source: the service name
// is recomputed with the same formula deploy uses, and the image reference is
// a syntactically valid placeholder because the tool requires a value for
// every declared variable even on teardown.
func (c *Coordinator) Destroy(ctx context.Context, request DestroyRequest) error {
	c.logger.Info().
		Str("repo_url", request.RepoURL).
		Str("region", request.Region).
		Msg("Starting teardown")

	serviceName := ServiceNameFor(request.RepoURL)

	run := &state.Run{
		Operation:   "destroy",
		RepoURL:     request.RepoURL,
		ServiceName: serviceName,
		Region:      request.Region,
		Status:      state.StatusDeploying,
	}
	c.recordStart(ctx, run)

	accountID, err := c.identity.AccountID(ctx)
	if err != nil {
		return c.fail(ctx, run, pipeline.IdentityError(err))
	}

	placeholderTag := fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s:latest",
		accountID, request.Region, request.ImageRepositoryName)

	variables := map[string]string{
		"service_name":     serviceName,
		"image_identifier": placeholderTag,
		"aws_account_id":   accountID,
		"aws_region":       request.Region,
		"ecr_repo_name":    request.ImageRepositoryName,
	}

	provisioner, err := c.provisioners(serviceName)
	if err != nil {
		return c.fail(ctx, run, pipeline.ProvisionError(err))
	}

	c.logger.Info().Str("service_name", serviceName).Msg("Destroying infrastructure")
	if err := provisioner.Init(ctx); err != nil {
		return c.fail(ctx, run, pipeline.ProvisionError(err))
	}
	if err := provisioner.Destroy(ctx, variables); err != nil {
		return c.fail(ctx, run, pipeline.ProvisionError(err))
	}

	c.logger.Info().Str("service_name", serviceName).Msg("Teardown successful")

	run.Status = state.StatusDestroyed
	c.recordUpdate(ctx, run)

	return nil
}

// fail records the stage-tagged failure and returns it.
func (c *Coordinator) fail(ctx context.Context, run *state.Run, err error) error {
	stage, _ := pipeline.StageOf(err)

	c.logger.Error().Err(err).Str("stage", string(stage)).Msg("Pipeline stage failed")

	run.Status = state.StatusFailed
	run.FailedStage = string(stage)
	run.Error = err.Error()
	c.recordUpdate(ctx, run)

	return err
}

func (c *Coordinator) recordStart(ctx context.Context, run *state.Run) {
	if c.store == nil {
		return
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record run start")
	}
}

func (c *Coordinator) recordUpdate(ctx context.Context, run *state.Run) {
	if c.store == nil {
		return
	}
	if err := c.store.UpdateRun(ctx, run); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record run update")
	}
}
