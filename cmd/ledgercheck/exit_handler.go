package main

import (
	"os"

	"github.com/kindledger/ledgercheck/internal/common"
)

// ExitHandler decouples process termination from the run logic, so the
// summary-then-exit path can be driven in tests without killing the test
// process.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler terminates the real process via os.Exit.
type DefaultExitHandler struct {
	logger *common.Logger
}

// NewDefaultExitHandler returns the production exit handler.
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{
		logger: common.GetLogger().WithComponent("main"),
	}
}

// Exit ends the process with code.
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError records err with its context and exits with code 1.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	h.logger.Error(msg, allKeyvals...)
	h.Exit(1)
}

// Replaced in tests that must observe the exit code.
var exitHandler ExitHandler = NewDefaultExitHandler()
