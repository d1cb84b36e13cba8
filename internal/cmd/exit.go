package cmd

import (
	"errors"
	"fmt"
	"os"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/ailink"
	"github.com/readmegen/readmegen/internal/repoinfo"
)

const (
	exitGeneral  = foundry.ExitFailure
	exitConfig   = foundry.ExitConfigInvalid
	exitIdentity = foundry.ExitFileNotFound
	exitUpstream = foundry.ExitExternalServiceUnavailable
)

// exitError attaches a semantic exit code to a command failure.
type exitError struct {
	code foundry.ExitCode
	msg  string
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code foundry.ExitCode, msg string, err error) error {
	return &exitError{code: code, msg: msg, err: err}
}

// ExitCodeFor picks the exit code for a command error. Upstream failures
// (repository lookup, completion provider) map to the external service code.
func ExitCodeFor(err error) foundry.ExitCode {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, repoinfo.ErrNotFetchable) || errors.Is(err, ailink.ErrGenerationFailed) {
		return exitUpstream
	}
	return exitGeneral
}

// Exit logs err with exit code metadata and terminates the process.
func Exit(logger *logging.Logger, err error) {
	ExitWithCode(logger, ExitCodeFor(err), "Command failed", err)
}

// ExitWithCode exits the program with a semantic foundry exit code and logs the error.
// logger may be nil for failures before logging is initialized.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	if logger == nil {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
		}
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	var envelope *gferrors.ErrorEnvelope
	if errors.As(err, &envelope) {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)

	os.Exit(info.Code)
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}
