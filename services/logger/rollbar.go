// Package logsvc reports log entries to Rollbar and mirrors them to a std logger.
package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (lvl Level) String() string {
	if lvl < LevelDebug || lvl > LevelFatal {
		return "LEVEL(" + fmt.Sprint(int(lvl)) + ")"
	}
	return levelNames[lvl]
}

type RollbarLogger struct {
	std *log.Logger
	min Level
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger drops debug entries unless conf.Debug is set.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)

	min := LevelInfo
	if conf.Debug {
		min = LevelDebug
	}
	return &RollbarLogger{std: std, min: min}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry splits the args of a log call: error, map[string]interface{}, identity.Identity.
type entry struct {
	msg    string
	err    error
	fields map[string]interface{}
	person *identity.Identity
	extra  []interface{}
}

func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			if e.err == nil {
				e.err = v
				continue
			}
		case map[string]interface{}:
			if e.fields == nil {
				e.fields = make(map[string]interface{}, len(v))
			}
			for k, val := range v {
				e.fields[k] = val
			}
			continue
		case identity.Identity:
			if e.person == nil {
				e.person = &v
			}
			continue
		case *identity.Identity:
			if e.person == nil {
				e.person = v
			}
			continue
		}
		e.extra = append(e.extra, arg)
	}
	return e
}

func (e entry) rollbarArgs() []interface{} {
	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if len(e.fields) > 0 {
		args = append(args, e.fields)
	}
	return args
}

func (e entry) String() string {
	var b strings.Builder
	b.WriteString(e.msg)
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	if e.person != nil {
		fmt.Fprintf(&b, " person=%s", e.person.Email)
	}
	for _, x := range e.extra {
		fmt.Fprintf(&b, " %+v", x)
	}
	return b.String()
}

func (l *RollbarLogger) log(lvl Level, report func(...interface{}), msg string, args []interface{}) {
	if lvl < l.min {
		return
	}
	e := newEntry(msg, args)
	if e.person != nil {
		rollbar.SetPerson(e.person.Email, e.person.DisplayName, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	report(e.rollbarArgs()...)
	l.std.Printf("%s %s", lvl, e)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, rollbar.Debug, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, rollbar.Info, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, rollbar.Warning, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, rollbar.Error, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
