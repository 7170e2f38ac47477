package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies one ordered step of the deployment pipeline.
type Stage string

const (
	StageIdentity  Stage = "identity"
	StageFetch     Stage = "fetch"
	StageDetect    Stage = "detect"
	StageGenerate  Stage = "generate"
	StageAuth      Stage = "registry-auth"
	StageBuild     Stage = "build"
	StagePublish   Stage = "publish"
	StageProvision Stage = "provision"
)

// Error is the root failure kind for every pipeline stage. Callers can match
// broadly with errors.As(*Error) or narrowly on the Stage tag.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with the stage it failed in. Errors already tagged are
// returned unmodified so nested coordinators never double-wrap.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Stage: stage, Err: err}
}

// IdentityError tags a cloud identity resolution failure.
func IdentityError(err error) error { return Wrap(StageIdentity, err) }

// FetchError tags a repository clone failure.
func FetchError(err error) error { return Wrap(StageFetch, err) }

// UnsupportedFrameworkError tags a failed framework detection.
func UnsupportedFrameworkError(err error) error { return Wrap(StageDetect, err) }

// GenerationError tags a build descriptor write failure.
func GenerationError(err error) error { return Wrap(StageGenerate, err) }

// AuthError tags a registry credential exchange failure.
func AuthError(err error) error { return Wrap(StageAuth, err) }

// BuildError tags a container image build failure.
func BuildError(err error) error { return Wrap(StageBuild, err) }

// PublishError tags an image push failure.
func PublishError(err error) error { return Wrap(StagePublish, err) }

// ProvisionError tags an infrastructure tool failure.
func ProvisionError(err error) error { return Wrap(StageProvision, err) }

// StageOf reports which stage err failed in, if it carries a stage tag.
func StageOf(err error) (Stage, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}
