package orchestrator

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvesdmateus/auto-deployer/internal/analyzer"
	"github.com/alvesdmateus/auto-deployer/internal/fetcher"
	"github.com/alvesdmateus/auto-deployer/internal/pipeline"
)

type fakeIdentity struct {
	accountID string
	err       error
	calls     int
}

func (f *fakeIdentity) AccountID(ctx context.Context) (string, error) {
	f.calls++
	return f.accountID, f.err
}

type fakeFetcher struct {
	revision string
	err      error
	snapshot *fetcher.Snapshot
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetcher.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	dir, err := os.MkdirTemp("", "fake-snapshot-*")
	if err != nil {
		return nil, err
	}
	f.snapshot = &fetcher.Snapshot{Path: dir, Revision: f.revision}
	return f.snapshot, nil
}

type fakeDetector struct {
	descriptor *analyzer.FrameworkDescriptor
	err        error
	calls      int
}

func (f *fakeDetector) Detect(path string) (*analyzer.FrameworkDescriptor, error) {
	f.calls++
	return f.descriptor, f.err
}

type fakeGenerator struct {
	err   error
	calls int
}

func (f *fakeGenerator) GenerateAndWrite(d *analyzer.FrameworkDescriptor, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return path + "/Dockerfile", nil
}

type fakeEngine struct {
	err      error
	builtTag string
	calls    int
}

func (f *fakeEngine) Build(ctx context.Context, sourcePath, imageTag string) error {
	f.calls++
	f.builtTag = imageTag
	return f.err
}

type fakeRegistry struct {
	host      string
	authErr   error
	pushErr   error
	pushedTag string
}

func (f *fakeRegistry) Authenticate(ctx context.Context) error { return f.authErr }

func (f *fakeRegistry) Push(ctx context.Context, imageTag string) error {
	f.pushedTag = imageTag
	return f.pushErr
}

func (f *fakeRegistry) ImageTag(repositoryName, revision string) string {
	return f.host + "/" + repositoryName + ":" + revision
}

type fakeProvisioner struct {
	initErr    error
	applyErr   error
	destroyErr error
	outputs    map[string]string
	outputsErr error

	appliedVars   map[string]string
	destroyedVars map[string]string
	applyCalls    int
	destroyCalls  int
}

func (f *fakeProvisioner) Init(ctx context.Context) error { return f.initErr }

func (f *fakeProvisioner) Apply(ctx context.Context, vars map[string]string) error {
	f.applyCalls++
	f.appliedVars = vars
	return f.applyErr
}

func (f *fakeProvisioner) Destroy(ctx context.Context, vars map[string]string) error {
	f.destroyCalls++
	f.destroyedVars = vars
	return f.destroyErr
}

func (f *fakeProvisioner) Outputs(ctx context.Context) (map[string]string, error) {
	return f.outputs, f.outputsErr
}

type fixture struct {
	identity    *fakeIdentity
	fetcher     *fakeFetcher
	detector    *fakeDetector
	generator   *fakeGenerator
	engine      *fakeEngine
	registry    *fakeRegistry
	provisioner *fakeProvisioner
	coordinator *Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		identity: &fakeIdentity{accountID: "123456789012"},
		fetcher:  &fakeFetcher{revision: "a1b2c3d"},
		detector: &fakeDetector{descriptor: &analyzer.FrameworkDescriptor{
			Framework:  analyzer.FrameworkFlask,
			Language:   "python",
			Entrypoint: "app:app",
		}},
		generator: &fakeGenerator{},
		engine:    &fakeEngine{},
		registry:  &fakeRegistry{host: "123456789012.dkr.ecr.us-east-2.amazonaws.com"},
		provisioner: &fakeProvisioner{outputs: map[string]string{
			"service_url": "https://abc.us-east-2.awsapprunner.com",
		}},
	}

	f.coordinator = NewCoordinator(
		f.identity,
		f.fetcher,
		f.detector,
		f.generator,
		f.engine,
		f.registry,
		func(serviceName string) (Provisioner, error) { return f.provisioner, nil },
		nil,
		zerolog.Nop(),
	)

	return f
}

func deployRequest() DeploymentRequest {
	return DeploymentRequest{
		RepoURL:             "https://github.com/example/flask-demo.git",
		IntentText:          "deploy my flask app to aws",
		ImageRepositoryName: "flask-demo",
		Region:              "us-east-2",
	}
}

func TestDeploySucceeds(t *testing.T) {
	f := newFixture()

	result, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "https://abc.us-east-2.awsapprunner.com", result.ServiceURL)
	assert.Equal(t, 1, f.provisioner.applyCalls)
	assert.Equal(t, 0, f.provisioner.destroyCalls)
}

func TestDeployImageTagRoundTrip(t *testing.T) {
	f := newFixture()

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err)

	wantTag := "123456789012.dkr.ecr.us-east-2.amazonaws.com/flask-demo:a1b2c3d"
	assert.Equal(t, wantTag, f.engine.builtTag, "built tag")
	assert.Equal(t, wantTag, f.registry.pushedTag, "pushed tag")
	assert.Equal(t, wantTag, f.provisioner.appliedVars["image_identifier"],
		"provisioning must consume the exact tag that was pushed")
}

func TestDeployVariableSet(t *testing.T) {
	f := newFixture()

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err)

	vars := f.provisioner.appliedVars
	assert.Equal(t, "auto-deployed-flask-demo", vars["service_name"])
	assert.Equal(t, "123456789012", vars["aws_account_id"])
	assert.Equal(t, "us-east-2", vars["aws_region"])
	assert.Equal(t, "flask-demo", vars["ecr_repo_name"])
}

func TestDeployMissingServiceURLIsSuccess(t *testing.T) {
	f := newFixture()
	f.provisioner.outputs = map[string]string{"other_output": "x"}

	result, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err, "a missing service_url output is a warning, not a failure")
	assert.Empty(t, result.ServiceURL)
	assert.Equal(t, "x", result.RawOutputs["other_output"])
}

func TestDeployOutputsErrorAfterApplyIsSuccess(t *testing.T) {
	f := newFixture()
	f.provisioner.outputs = nil
	f.provisioner.outputsErr = errors.New("output parse failed")

	result, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err)
	assert.Empty(t, result.ServiceURL)
}

func TestDeployIdentityFailureAbortsBeforeFetch(t *testing.T) {
	f := newFixture()
	f.identity.err = errors.New("no credentials")

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	stage, ok := pipeline.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.StageIdentity, stage)
	assert.Equal(t, 0, f.fetcher.calls, "nothing may run after the failing stage")
}

func TestDeployDetectFailureAbortsBeforeBuild(t *testing.T) {
	f := newFixture()
	f.detector.descriptor = nil
	f.detector.err = analyzer.ErrUnsupportedFramework

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	stage, _ := pipeline.StageOf(err)
	assert.Equal(t, pipeline.StageDetect, stage)
	assert.Equal(t, 0, f.generator.calls)
	assert.Equal(t, 0, f.engine.calls)
	assert.Equal(t, 0, f.provisioner.applyCalls)
}

func TestDeployBuildFailureTagged(t *testing.T) {
	f := newFixture()
	f.engine.err = errors.New("build error: requirements.txt not found")

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	stage, _ := pipeline.StageOf(err)
	assert.Equal(t, pipeline.StageBuild, stage)
	assert.Empty(t, f.registry.pushedTag, "push must not run after a failed build")
}

func TestDeployPublishFailureTagged(t *testing.T) {
	f := newFixture()
	f.registry.pushErr = errors.New("denied")

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	stage, _ := pipeline.StageOf(err)
	assert.Equal(t, pipeline.StagePublish, stage)
	assert.Equal(t, 0, f.provisioner.applyCalls)
}

func TestDeployProvisionFailureTagged(t *testing.T) {
	f := newFixture()
	f.provisioner.applyErr = errors.New("Error creating App Runner service | Detail: AccessDeniedException")

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	stage, _ := pipeline.StageOf(err)
	assert.Equal(t, pipeline.StageProvision, stage)
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestDeployCleansUpSnapshotOnSuccess(t *testing.T) {
	f := newFixture()

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.NoError(t, err)

	_, statErr := os.Stat(f.fetcher.snapshot.Path)
	assert.True(t, os.IsNotExist(statErr), "snapshot must be removed after a successful run")
}

func TestDeployCleansUpSnapshotOnFailure(t *testing.T) {
	f := newFixture()
	f.provisioner.applyErr = errors.New("apply failed")

	_, err := f.coordinator.Deploy(context.Background(), deployRequest())
	require.Error(t, err)

	_, statErr := os.Stat(f.fetcher.snapshot.Path)
	assert.True(t, os.IsNotExist(statErr), "snapshot must be removed on every exit path")
}

func TestDestroySkipsFetchAndDetect(t *testing.T) {
	f := newFixture()

	err := f.coordinator.Destroy(context.Background(), DestroyRequest{
		RepoURL:             "https://github.com/example/flask-demo.git",
		ImageRepositoryName: "flask-demo",
		Region:              "us-east-2",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.fetcher.calls)
	assert.Equal(t, 0, f.detector.calls)
	assert.Equal(t, 1, f.provisioner.destroyCalls)
}

func TestDestroyVariableSet(t *testing.T) {
	f := newFixture()

	err := f.coordinator.Destroy(context.Background(), DestroyRequest{
		RepoURL:             "https://github.com/example/flask-demo.git",
		ImageRepositoryName: "flask-demo",
		Region:              "us-east-2",
	})
	require.NoError(t, err)

	vars := f.provisioner.destroyedVars
	assert.Equal(t, "auto-deployed-flask-demo", vars["service_name"],
		"destroy must recompute the same service name deploy used")
	assert.Equal(t, "123456789012.dkr.ecr.us-east-2.amazonaws.com/flask-demo:latest",
		vars["image_identifier"], "teardown needs a syntactically valid placeholder image")
}

func TestDestroyNeverDeployedStillRuns(t *testing.T) {
	f := newFixture()

	// The external tool reports nothing to destroy by exiting cleanly; that is
	// success for the workflow.
	err := f.coordinator.Destroy(context.Background(), DestroyRequest{
		RepoURL:             "https://github.com/example/never-deployed",
		ImageRepositoryName: "never-deployed",
		Region:              "us-east-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "auto-deployed-never-deployed", f.provisioner.destroyedVars["service_name"])
}

func TestServiceNameFor(t *testing.T) {
	cases := map[string]string{
		"https://github.com/example/flask-demo.git": "auto-deployed-flask-demo",
		"https://github.com/example/flask-demo":     "auto-deployed-flask-demo",
		"https://github.com/example/flask-demo/":    "auto-deployed-flask-demo",
		"git@host:demo.git":                         "auto-deployed-git@host:demo",
	}

	for input, want := range cases {
		if got := ServiceNameFor(input); got != want {
			t.Errorf("ServiceNameFor(%q) = %q, want %q", input, got, want)
		}
	}
}
