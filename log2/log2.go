// Package log2 is a thin leveled wrapper around stdlib log:
// - level filtering with safe concurrent level change
// - trace level for per-event spam that would drown debug
// - error hook to forward problems to telemetry
// - logging into t.Logf() from parallel tests
package log2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync/atomic"
	"testing"
)

const ContextKey = "run/log"

const (
	// type specified here helped against accidentally passing flags as level
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | Lshortfile
	LInteractiveFlags int = log.Ltime | Lshortfile | Lmicroseconds
	LServiceFlags     int = Lshortfile
	LTestFlags        int = Lshortfile | Lmicroseconds
)

func ContextValueLogger(ctx context.Context) *Log {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Errorf("context['%v'] is nil", ContextKey))
	}
	if lg, ok := v.(*Log); ok {
		return lg
	}
	panic(fmt.Errorf("context['%v'] expected type *Log", ContextKey))
}

type Level int32

const (
	LError Level = iota
	LInfo
	LDebug
	LTrace
	LAll Level = math.MaxInt32
)

func ParseLevel(s string) (Level, error) {
	switch s {
	case "error", "err":
		return LError, nil
	case "info", "":
		return LInfo, nil
	case "debug":
		return LDebug, nil
	case "trace":
		return LTrace, nil
	}
	return LError, fmt.Errorf("log2: unknown level '%s'", s)
}

type Log struct {
	l       *log.Logger
	level   Level
	w       io.Writer
	fatalf  FmtFunc
	onError atomic.Value // ErrorFunc
}

type ErrorFunc func(error)
type FmtFunc func(format string, args ...interface{})
type FmtFuncWriter struct{ FmtFunc }

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }
func NewWriter(w io.Writer, level Level) *Log {
	if w == io.Discard {
		return nil
	}
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: level,
		w:     w,
	}
}

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(FmtFuncWriter{f}, level) }
func (self FmtFuncWriter) Write(b []byte) (int, error) {
	self.FmtFunc(string(b))
	return len(b), nil
}

func NewTest(t testing.TB, level Level) *Log {
	self := NewFunc(t.Logf, level)
	self.fatalf = t.Fatalf
	self.SetFlags(LTestFlags)
	return self
}

func (self *Log) Clone(level Level) *Log {
	if self == nil {
		return nil
	}
	l := NewWriter(self.w, level)
	l.fatalf = self.fatalf
	l.SetFlags(self.l.Flags())
	if f, ok := self.onError.Load().(ErrorFunc); ok && f != nil {
		l.SetErrorFunc(f)
	}
	return l
}

func (self *Log) SetErrorFunc(f ErrorFunc) {
	if self == nil {
		return
	}
	self.onError.Store(f)
}

func (self *Log) SetLevel(l Level) {
	if self == nil {
		return
	}
	atomic.StoreInt32((*int32)(&self.level), int32(l))
}

func (self *Log) SetFlags(f int) {
	if self == nil {
		return
	}
	self.l.SetFlags(f)
}

func (self *Log) SetPrefix(prefix string) {
	if self == nil {
		return
	}
	self.l.SetPrefix(prefix)
}

func (self *Log) Stdlib() *log.Logger {
	if self == nil {
		return nil
	}
	return self.l
}

func (self *Log) Enabled(level Level) bool {
	if self == nil {
		return false
	}
	return atomic.LoadInt32((*int32)(&self.level)) >= int32(level)
}

func (self *Log) Log(level Level, s string) {
	if self.Enabled(level) {
		_ = self.l.Output(3, s)
	}
}
func (self *Log) Logf(level Level, format string, args ...interface{}) {
	if self.Enabled(level) {
		_ = self.l.Output(3, fmt.Sprintf(format, args...))
	}
}

func (self *Log) Error(args ...interface{}) {
	self.Log(LError, "error: "+fmt.Sprint(args...))
	if len(args) == 1 {
		if e, ok := args[0].(error); ok {
			self.error(e)
			return
		}
	}
	self.error(errors.New(fmt.Sprint(args...)))
}
func (self *Log) Errorf(format string, args ...interface{}) {
	self.Logf(LError, "error: "+format, args...)
	self.error(fmt.Errorf(format, args...))
}
func (self *Log) Info(args ...interface{}) {
	self.Log(LInfo, fmt.Sprint(args...))
}
func (self *Log) Infof(format string, args ...interface{}) {
	self.Logf(LInfo, format, args...)
}
func (self *Log) Debug(args ...interface{}) {
	self.Log(LDebug, "debug: "+fmt.Sprint(args...))
}
func (self *Log) Debugf(format string, args ...interface{}) {
	self.Logf(LDebug, "debug: "+format, args...)
}
func (self *Log) Trace(args ...interface{}) {
	self.Log(LTrace, "trace: "+fmt.Sprint(args...))
}
func (self *Log) Tracef(format string, args ...interface{}) {
	self.Logf(LTrace, "trace: "+format, args...)
}

func (self *Log) Fatalf(format string, args ...interface{}) {
	if self != nil && self.fatalf != nil {
		self.fatalf(format, args...)
	} else {
		self.Logf(LError, "fatal: "+format, args...)
		os.Exit(1)
	}
}
func (self *Log) Fatal(args ...interface{}) {
	s := fmt.Sprint(args...)
	if self != nil && self.fatalf != nil {
		self.fatalf(s)
	} else {
		self.Logf(LError, "fatal: "+s)
		os.Exit(1)
	}
}

func (self *Log) error(e error) {
	if self == nil {
		return
	}
	if f, ok := self.onError.Load().(ErrorFunc); ok && f != nil {
		f(e)
	}
}
