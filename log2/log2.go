// Package log2 solves these issues:
// - log level filtering, e.g. show frame dumps in tests and `--debug` only
// - safe concurrent change of log level
// - per-connection prefix without passing a new *log.Logger around
// - error hook, e.g. forward errors to operator alert or telemetry
//
// Nil *Log is valid and discards everything.
package log2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
)

const ContextKey = "run/log"

const (
	// type specified here helped against accidentally passing flags as level
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | Lshortfile
	LInteractiveFlags int = log.Ltime | Lmicroseconds
	LServiceFlags     int = Lshortfile
	LTestFlags        int = Lshortfile | Lmicroseconds
)

func ContextValueLogger(ctx context.Context) *Log {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Errorf("context['%v'] is nil", ContextKey))
	}
	if log, ok := v.(*Log); ok {
		return log
	}
	panic(fmt.Errorf("context['%v'] expected type *Log", ContextKey))
}

func ContextWithLog(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, ContextKey, l)
}

type Level int32

const (
	LError = iota
	LInfo
	LDebug
	LAll = math.MaxInt32
)

type Log struct {
	l      *log.Logger
	level  Level
	w      io.Writer
	fatalf FmtFunc

	errmu   sync.RWMutex
	errfunc ErrorFunc
}

type FmtFunc func(format string, args ...interface{})
type ErrorFunc func(error)

type FuncWriter struct{ FmtFunc }

func (self FuncWriter) Write(b []byte) (int, error) {
	self.FmtFunc("%s", string(b))
	return len(b), nil
}

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }
func NewWriter(w io.Writer, level Level) *Log {
	if w == ioutil.Discard {
		return nil
	}
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: level,
		w:     w,
	}
}

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(FuncWriter{f}, level) }

func NewTest(t testing.TB, level Level) *Log {
	self := NewFunc(t.Logf, level)
	self.SetFlags(LTestFlags)
	self.fatalf = t.Fatalf
	return self
}

func (self *Log) Clone(level Level) *Log {
	if self == nil {
		return nil
	}
	l := NewWriter(self.w, level)
	l.SetFlags(self.l.Flags())
	l.SetPrefix(self.l.Prefix())
	l.fatalf = self.fatalf
	self.errmu.RLock()
	l.errfunc = self.errfunc
	self.errmu.RUnlock()
	return l
}

// WithPrefix returns a copy with the same level and hooks and prefix appended.
func (self *Log) WithPrefix(prefix string) *Log {
	if self == nil {
		return nil
	}
	l := self.Clone(Level(atomic.LoadInt32((*int32)(&self.level))))
	l.SetPrefix(self.l.Prefix() + prefix)
	return l
}

func (self *Log) SetErrorFunc(f ErrorFunc) {
	if self == nil {
		return
	}
	self.errmu.Lock()
	self.errfunc = f
	self.errmu.Unlock()
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
	if f := self.errorFunc(); f != nil {
		if len(args) == 1 {
			if e, ok := args[0].(error); ok {
				f(e)
				return
			}
		}
		f(errors.New(fmt.Sprint(args...)))
	}
}
func (self *Log) Errorf(format string, args ...interface{}) {
	self.Logf(LError, "error: "+format, args...)
	if f := self.errorFunc(); f != nil {
		f(fmt.Errorf(format, args...))
	}
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

func (self *Log) Fatalf(format string, args ...interface{}) {
	if self != nil && self.fatalf != nil {
		self.fatalf(format, args...)
		return
	}
	self.Logf(LError, "fatal: "+format, args...)
	os.Exit(1)
}
func (self *Log) Fatal(args ...interface{}) {
	s := fmt.Sprint(args...)
	if self != nil && self.fatalf != nil {
		self.fatalf("%s", s)
		return
	}
	self.Log(LError, "fatal: "+s)
	os.Exit(1)
}

func (self *Log) errorFunc() ErrorFunc {
	if self == nil {
		return nil
	}
	self.errmu.RLock()
	f := self.errfunc
	self.errmu.RUnlock()
	return f
}
