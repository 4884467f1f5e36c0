package cmd

import (
	"errors"

	"github.com/Rosh-10/automated-analysis-project/internal/config"
	"github.com/Rosh-10/automated-analysis-project/internal/dataset"
	"github.com/Rosh-10/automated-analysis-project/internal/narrative"
	"github.com/Rosh-10/automated-analysis-project/internal/report"
)

// Process exit codes. They are stable across releases.
const (
	ExitSuccess            = 0
	ExitFailure            = 1
	ExitUsage              = 2
	ExitConfig             = 3
	ExitLoad               = 4
	ExitNarrativeClient    = 5
	ExitNarrativeTransport = 6
	ExitWrite              = 7
)

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type configError struct{ err error }

func (e *configError) Error() string { return "config: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		ue *usageError
		ce *configError
		le *dataset.LoadError
		nc *narrative.ClientError
		nt *narrative.TransportError
		we *report.WriteError
	)
	switch {
	case errors.As(err, &ue):
		return ExitUsage
	case errors.As(err, &ce), errors.Is(err, config.ErrMissingToken):
		return ExitConfig
	case errors.As(err, &le):
		return ExitLoad
	case errors.As(err, &nc):
		return ExitNarrativeClient
	case errors.As(err, &nt):
		return ExitNarrativeTransport
	case errors.As(err, &we):
		return ExitWrite
	}
	return ExitFailure
}
