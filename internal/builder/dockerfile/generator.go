package dockerfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/analyzer"
)

// Generator emits build descriptor files from framework descriptors. The
// output is deterministic: equal inputs yield byte-identical Dockerfiles.
type Generator struct {
	logger zerolog.Logger
}

// NewGenerator creates a new Dockerfile generator.
func NewGenerator(logger zerolog.Logger) *Generator {
	return &Generator{
		logger: logger.With().Str("component", "dockerfile").Logger(),
	}
}

// Generate renders the Dockerfile content for the detected framework.
func (g *Generator) Generate(descriptor *analyzer.FrameworkDescriptor) (string, error) {
	if descriptor == nil {
		return "", fmt.Errorf("framework descriptor is nil")
	}
	return renderTemplate(descriptor)
}

// GenerateAndWrite renders the Dockerfile and writes it at the snapshot root.
func (g *Generator) GenerateAndWrite(descriptor *analyzer.FrameworkDescriptor, snapshotPath string) (string, error) {
	content, err := g.Generate(descriptor)
	if err != nil {
		return "", err
	}

	path := filepath.Join(snapshotPath, "Dockerfile")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	g.logger.Info().
		Str("framework", string(descriptor.Framework)).
		Str("path", path).
		Msg("Generated Dockerfile")

	return path, nil
}
