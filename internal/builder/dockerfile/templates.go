package dockerfile

import (
	"fmt"
	"strings"

	"github.com/alvesdmateus/auto-deployer/internal/analyzer"
)

// ServicePort is the single fixed port the generated image exposes and the
// production server binds to.
const ServicePort = 8080

const flaskTemplate = `# Stage 1: Build the application
FROM python:3.10-slim AS builder

WORKDIR /app

# Install build dependencies
COPY requirements.txt .
RUN pip wheel --no-cache-dir --wheel-dir /app/wheels -r requirements.txt

# Stage 2: Create the final production image
FROM python:3.10-slim

WORKDIR /app

# Copy built wheels from the builder stage
COPY --from=builder /app/wheels /wheels
COPY requirements.txt .
RUN pip install --no-cache /wheels/*

# Copy application code
COPY . .

# Expose the port Gunicorn will run on
EXPOSE %d

# Run the application using Gunicorn
CMD ["gunicorn", "--bind", "0.0.0.0:%d", "%s"]
`

// renderTemplate produces Dockerfile content for a supported framework. The
// switch is a whitelist: any unrecognized kind is an error, never a silent
// default.
func renderTemplate(descriptor *analyzer.FrameworkDescriptor) (string, error) {
	switch descriptor.Framework {
	case analyzer.FrameworkFlask:
		entrypoint := descriptor.Entrypoint
		if entrypoint == "" {
			entrypoint = "app:app"
		}
		return strings.TrimSpace(fmt.Sprintf(flaskTemplate, ServicePort, ServicePort, entrypoint)) + "\n", nil
	default:
		return "", fmt.Errorf("framework %q is not supported for containerization", descriptor.Framework)
	}
}
