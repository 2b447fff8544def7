package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement names an external binary the player shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of checking one Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Severity maps availability onto the status levels the CLI prints.
// A missing optional binary only degrades playback checks.
func (s Status) Severity() string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "warn"
	default:
		return "error"
	}
}

// Check resolves the requirement's command and confirms it can be executed.
func (r Requirement) Check() Status {
	status := Status{
		Name:        r.Name,
		Command:     strings.TrimSpace(r.Command),
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	switch {
	case errors.Is(err, exec.ErrNotFound):
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	case err != nil:
		status.Detail = err.Error()
		return status
	}
	if info, statErr := os.Stat(path); statErr == nil && !isExecutable(info) {
		status.Detail = "not executable"
		return status
	}
	status.Available = true
	return status
}

// CheckBinaries checks each requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, req.Check())
	}
	return results
}
