package builder

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// Engine builds container images from a repository snapshot using the local
// Docker daemon.
type Engine struct {
	client *client.Client
	logger zerolog.Logger
}

// NewEngine creates a new Docker build engine.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Engine{
		client: cli,
		logger: logger.With().Str("component", "builder").Logger(),
	}, nil
}

// Build builds an image from the Dockerfile at the snapshot root and tags it
// with imageTag. The engine's streamed output is consumed as it is produced;
// on failure the engine's own error message is surfaced, not a bare status.
func (e *Engine) Build(ctx context.Context, sourcePath, imageTag string) error {
	start := time.Now()

	if _, err := e.client.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not accessible: %w", err)
	}

	e.logger.Info().
		Str("image_tag", imageTag).
		Str("source", sourcePath).
		Msg("Building container image")

	buildContext, err := e.createBuildContext(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer buildContext.Close()

	response, err := e.client.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{imageTag},
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("docker build failed: %w", err)
	}
	defer response.Body.Close()

	if err := e.streamBuildOutput(ctx, response.Body); err != nil {
		return err
	}

	e.logger.Info().
		Str("image_tag", imageTag).
		Dur("duration", time.Since(start)).
		Msg("Image built successfully")

	return nil
}

// createBuildContext creates a tar archive of the snapshot, excluding files
// the image never needs.
func (e *Engine) createBuildContext(sourcePath string) (io.ReadCloser, error) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)

	excluded := map[string]bool{
		".git":         true,
		".github":      true,
		"node_modules": true,
		"vendor":       true,
		"__pycache__":  true,
	}

	err := filepath.Walk(sourcePath, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(sourcePath, file)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		parts := strings.Split(filepath.ToSlash(relPath), "/")
		if excluded[parts[0]] {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !fi.IsDir() {
			data, err := os.Open(file)
			if err != nil {
				return err
			}
			defer data.Close()

			if _, err := io.Copy(tw, data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tar archive: %w", err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize tar archive: %w", err)
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// streamBuildOutput consumes the engine's JSON-per-line build output as the
// build runs. Build steps are logged; an error message from the engine aborts
// with that message.
func (e *Engine) streamBuildOutput(ctx context.Context, reader io.Reader) error {
	decoder := json.NewDecoder(reader)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg struct {
			Stream      string `json:"stream"`
			Error       string `json:"error"`
			ErrorDetail struct {
				Message string `json:"message"`
			} `json:"errorDetail"`
		}

		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode build output: %w", err)
		}

		if msg.Error != "" {
			if msg.ErrorDetail.Message != "" {
				return fmt.Errorf("build error: %s", msg.ErrorDetail.Message)
			}
			return fmt.Errorf("build error: %s", msg.Error)
		}

		if msg.Stream != "" {
			e.logger.Debug().Str("output", strings.TrimSpace(msg.Stream)).Msg("Build output")
		}
	}
}
