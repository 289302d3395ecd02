// Command cli is an interactive shell over one session's transactional
// attribute store.
//
// Usage:
//
//	cli [-c config.json] [-l level] [--history file] [--pretty=false]
//
// Commands (in REPL):
//
//	set <name> <value>     Set an attribute in the current transaction
//	get <name>             Show an attribute
//	remove <name>          Remove an attribute
//	ls                     List visible attributes
//	size                   Count visible attributes
//	pending                Show uncommitted changes
//	dump                   Print visible attributes as YAML
//	commit | abort         End the transaction
//	prepare                Send a prepare event
//	savepoint <name>       Start a savepoint
//	release <name>         Release a savepoint
//	rollback <name>        Roll back a savepoint (discards pending changes)
//	seed <x>               Set and commit 26 * x attributes
//	history [n]            Show the last n commands
//	help                   List commands
//	exit / quit            Exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"shadowkv/internal/common"
	"shadowkv/internal/config"
	"shadowkv/internal/session"
	"shadowkv/internal/xact"
)

var commandNames = []string{
	"set", "get", "remove", "ls", "size", "pending", "dump", "commit", "abort",
	"prepare", "savepoint", "release", "rollback", "seed", "history", "help", "exit", "quit",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	common.SetLogger(common.NewLogger(common.LogConfig{
		Level:  cfg.LogLevel,
		Out:    os.Stderr,
		Pretty: cfg.PrettyLogs(),
	}))

	r := newREPL(session.New(), xact.NewDispatcher(), os.Stdout)
	if err := r.applySeed(cfg.Seed); err != nil {
		return fmt.Errorf("applying seed: %w", err)
	}

	hist, err := newHistory(cfg.HistoryFile)
	if err != nil {
		common.Logger().Warn().Err(err).Msg("history disabled")
	}
	r.history = hist

	fmt.Printf("shadowkv - session %s\n", r.sess.ID())
	fmt.Println("type 'help' for commands")

	return r.loop()
}

func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file (JSONC)")
	logLevel := fs.StringP("log-level", "l", "", "log level: debug, info, warn, error")
	historyFile := fs.String("history", "", "history file")
	pretty := fs.Bool("pretty", true, "human-readable logs")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}

	var flags config.Config
	flags.LogLevel = *logLevel
	flags.HistoryFile = *historyFile
	if fs.Changed("pretty") {
		flags.Pretty = pretty
	}
	if err := config.Validate(flags); err != nil {
		return config.Config{}, err
	}

	return config.Merge(cfg, flags), nil
}

func (r *repl) loop() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)
	if r.history != nil {
		for _, cmd := range r.history.list(0) {
			line.AppendHistory(cmd)
		}
	}

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if r.history != nil {
			r.history.add(input)
		}

		if r.exec(context.Background(), input) {
			break
		}
	}

	if r.history != nil {
		if err := r.history.save(); err != nil {
			common.Logger().Warn().Err(err).Msg("failed to save history")
		}
	}
	return nil
}

func complete(input string) []string {
	var out []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, strings.ToLower(input)) {
			out = append(out, name)
		}
	}
	return out
}
