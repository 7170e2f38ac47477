package terraform

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Diagnostic is the structured error summary Terraform emits in its
// JSON-per-line output.
type Diagnostic struct {
	Summary string
	Detail  string
}

// CommandError is returned when a terraform command exits non-zero. When the
// streamed output carried a structured diagnostic it is surfaced here instead
// of the bare exit code.
type CommandError struct {
	Args       []string
	ExitCode   int
	Diagnostic *Diagnostic
}

func (e *CommandError) Error() string {
	if e.Diagnostic != nil {
		return fmt.Sprintf("%s | Detail: %s", e.Diagnostic.Summary, e.Diagnostic.Detail)
	}
	return fmt.Sprintf("terraform %s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
}

// Runner wraps the terraform binary's three-command lifecycle over a working
// directory. The directory scopes the local state; concurrent runs must use
// distinct working directories.
type Runner struct {
	workDir  string
	execPath string
	logger   zerolog.Logger
}

// NewRunner creates a runner over workDir. The directory must already exist.
func NewRunner(workDir string, logger zerolog.Logger) (*Runner, error) {
	if _, err := os.Stat(workDir); err != nil {
		return nil, fmt.Errorf("terraform working directory does not exist: %s", workDir)
	}

	return &Runner{
		workDir:  workDir,
		execPath: "terraform",
		logger:   logger.With().Str("component", "terraform").Logger(),
	}, nil
}

// Init runs terraform init.
func (r *Runner) Init(ctx context.Context) error {
	_, err := r.stream(ctx, "init", "-no-color")
	return err
}

// Apply runs terraform apply with the given variable set.
func (r *Runner) Apply(ctx context.Context, variables map[string]string) error {
	args := append([]string{"apply", "-auto-approve", "-json"}, varArgs(variables)...)
	_, err := r.stream(ctx, args...)
	return err
}

// Destroy runs terraform destroy with the given variable set. Terraform's own
// "nothing to destroy" result exits zero and is treated as success.
func (r *Runner) Destroy(ctx context.Context, variables map[string]string) error {
	args := append([]string{"destroy", "-auto-approve", "-json"}, varArgs(variables)...)
	_, err := r.stream(ctx, args...)
	return err
}

// Outputs runs terraform output -json and returns the flattened values.
func (r *Runner) Outputs(ctx context.Context) (map[string]string, error) {
	stdout, err := r.stream(ctx, "output", "-json")
	if err != nil {
		return nil, err
	}

	var raw map[string]struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse terraform outputs: %w", err)
	}

	outputs := make(map[string]string, len(raw))
	for key, entry := range raw {
		var s string
		if err := json.Unmarshal(entry.Value, &s); err == nil {
			outputs[key] = s
			continue
		}
		outputs[key] = string(entry.Value)
	}

	return outputs, nil
}

// varArgs renders a variable set as -var flags, sorted for a stable command
// line.
func varArgs(variables map[string]string) []string {
	keys := make([]string, 0, len(variables))
	for key := range variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, key := range keys {
		args = append(args, fmt.Sprintf("-var=%s=%s", key, variables[key]))
	}
	return args
}

// stream executes terraform with args, emitting every output line to the log
// as it is produced. Output is consumed while the process runs so a full pipe
// buffer can never deadlock the subprocess. It returns the captured stdout.
func (r *Runner) stream(ctx context.Context, args ...string) (string, error) {
	r.logger.Info().Str("command", "terraform "+strings.Join(args, " ")).Msg("Executing terraform command")

	cmd := exec.CommandContext(ctx, r.execPath, args...)
	cmd.Dir = r.workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start terraform: %w", err)
	}

	errLines := make(chan []string, 1)
	go func() {
		errLines <- r.consume(stderr)
	}()

	outLines := r.consume(stdout)
	allLines := append(outLines, <-errLines...)

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}

		cmdErr := &CommandError{
			Args:       args,
			ExitCode:   exitCode,
			Diagnostic: parseDiagnostic(allLines),
		}
		r.logger.Error().Err(cmdErr).Msg("Terraform command failed")
		return "", cmdErr
	}

	return strings.Join(outLines, "\n"), nil
}

// consume reads lines from a subprocess pipe until EOF, logging each one.
func (r *Runner) consume(pipe io.Reader) []string {
	var lines []string

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			r.logger.Info().Msg(line)
		}
		lines = append(lines, line)
	}

	return lines
}

// parseDiagnostic scans JSON-per-line terraform output for the first
// error-level diagnostic. Lines that are not valid JSON are skipped.
func parseDiagnostic(lines []string) *Diagnostic {
	for _, line := range lines {
		var entry struct {
			Level      string `json:"@level"`
			Diagnostic *struct {
				Summary string `json:"summary"`
				Detail  string `json:"detail"`
			} `json:"diagnostic"`
		}

		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Level == "error" && entry.Diagnostic != nil {
			return &Diagnostic{
				Summary: entry.Diagnostic.Summary,
				Detail:  entry.Diagnostic.Detail,
			}
		}
	}
	return nil
}
