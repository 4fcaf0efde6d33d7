// Package logging holds the process-wide leveled logger.  It is the same
// gommon logger echo uses for request logs, so server and handler output
// share one format and one level switch.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

var (
	root     *log.Logger
	rootOnce sync.Once
)

// Root returns the shared logger, creating it on first use.
func Root() *log.Logger {
	rootOnce.Do(func() {
		root = log.New("nx")
		root.SetOutput(os.Stderr)
		root.SetLevel(log.INFO)
	})
	return root
}

// Configure sets the minimum level (DEBUG, INFO, WARN, ERROR, OFF) and the
// output.  A nil writer keeps the current one.
func Configure(level string, w io.Writer) {
	l := Root()
	l.SetLevel(ParseLevel(level))
	if w != nil {
		l.SetOutput(w)
	}
}

// ParseLevel maps a level name to a gommon level; unknown names mean INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return log.DEBUG
	case "WARN", "WARNING":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}

func Debug(msg string, kv ...any) { Root().Debugj(fields(msg, kv)) }
func Info(msg string, kv ...any)  { Root().Infoj(fields(msg, kv)) }
func Warn(msg string, kv ...any)  { Root().Warnj(fields(msg, kv)) }

// Error logs msg with err prepended to the key/value list.
func Error(msg string, err error, kv ...any) {
	Root().Errorj(fields(msg, append([]any{"err", err}, kv...)))
}

// fields turns msg plus key/value pairs into a JSON object.  Non-string keys
// are skipped and a trailing key without a value is dropped.
func fields(msg string, kv []any) log.JSON {
	out := log.JSON{"msg": msg}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			if v == nil {
				out[key] = nil
			} else {
				out[key] = v.Error()
			}
		case fmt.Stringer:
			out[key] = v.String()
		default:
			out[key] = v
		}
	}
	return out
}
