// Package commonlogadapter wires github.com/tliron/commonlog (the logging
// library server/lsp.go uses) into the logging.Logger interface CORE
// packages depend on. Only cmd/ entry points import this package, so a
// commonlog API drift is isolated here instead of touching gc/loader/domain.
package commonlogadapter

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jimbxb/plasma/logging"
)

// Configure sets the process-wide commonlog verbosity, as every plasma
// CLI's -v flag maps to. Call once, early, from main.
func Configure(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

type adapter struct {
	log commonlog.Logger
}

// New returns a logging.Logger backed by a named commonlog logger, e.g.
// "plasma.gc", "plasma.loader", "plasma.solver".
func New(name string) logging.Logger {
	return adapter{log: commonlog.GetLogger(name)}
}

func (a adapter) Debug(message string, fields ...any)   { a.log.Debug(message, fields...) }
func (a adapter) Info(message string, fields ...any)    { a.log.Info(message, fields...) }
func (a adapter) Warning(message string, fields ...any) { a.log.Warning(message, fields...) }
func (a adapter) Error(message string, fields ...any)   { a.log.Error(message, fields...) }
