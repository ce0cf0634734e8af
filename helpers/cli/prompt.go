// Package cli runs an interactive command loop: go-prompt with completion
// on a terminal, plain line reading otherwise (pipes, scripts).
package cli

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
)

type Executor func(line string)
type Completer func(d prompt.Document) []prompt.Suggest

// MainLoop returns on end of input or when done reports true after a line.
// onSignal runs on signal goroutine. done and onSignal may be nil.
func MainLoop(tag string, exec Executor, complete Completer, done func() bool, onSignal func(os.Signal)) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer signal.Stop(signalCh)
	go func() {
		if s, ok := <-signalCh; ok && onSignal != nil {
			onSignal(s)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(prompt.Executor(exec), prompt.Completer(complete),
			prompt.OptionTitle(tag),
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionSetExitCheckerOnInput(func(string, bool) bool {
				return done != nil && done()
			}),
		).Run()
		return
	}
	ReadLines(os.Stdin, exec, done)
}

// ReadLines feeds exec with trimmed lines until EOF or done.
// Blank lines and # comments are skipped.
func ReadLines(r io.Reader, exec Executor, done func() bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exec(line)
		if done != nil && done() {
			return
		}
	}
}

// Filter suggests words by prefix of the word before cursor.
func Filter(suggests []prompt.Suggest, d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}
