package cli

import (
	"bytes"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
)

// MainLoop runs exec for each input line, interactively with completion on a
// terminal, else reading lines from stdin until EOF.
func MainLoop(tag string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for range signalCh {
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(exec, complete, prompt.OptionPrefix(tag+"> ")).Run()
	} else {
		stdinAll, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		linesb := bytes.Split(stdinAll, []byte{'\n'})
		for _, lineb := range linesb {
			line := string(bytes.TrimSpace(lineb))
			exec(line)
		}
	}
}
