package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"shadowkv/internal/common"
	"shadowkv/internal/session"
	"shadowkv/internal/xact"
)

type repl struct {
	sess       *session.Session
	dispatch   *xact.Dispatcher
	out        io.Writer
	history    *History
	savepoints map[string]xact.Savepoint
	seedIndex  int
}

func newREPL(sess *session.Session, d *xact.Dispatcher, out io.Writer) *repl {
	sess.Attach(d)
	return &repl{
		sess:       sess,
		dispatch:   d,
		out:        out,
		savepoints: make(map[string]xact.Savepoint),
	}
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// exec runs one command line and reports whether the REPL should exit.
func (r *repl) exec(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "set":
		if len(parts) < 3 {
			r.printf("usage: set <name> <value>\n")
			return false
		}
		r.sess.SetAttribute(parts[1], strings.Join(parts[2:], " "))
		r.printf("ok\n")
	case "get":
		if len(parts) != 2 {
			r.printf("usage: get <name>\n")
			return false
		}
		value, ok := r.sess.GetAttribute(parts[1])
		if !ok {
			r.printf("(not set)\n")
			return false
		}
		r.printf("%v\n", value)
	case "remove":
		if len(parts) != 2 {
			r.printf("usage: remove <name>\n")
			return false
		}
		r.sess.RemoveAttribute(parts[1])
		r.printf("ok\n")
	case "ls":
		for _, name := range r.sess.AttributeNames() {
			value, _ := r.sess.GetAttribute(name)
			r.printf("%-20s %v\n", name, value)
		}
	case "size":
		r.printf("%d\n", r.sess.Len())
	case "pending":
		dumpPending(r.out, r.sess.PendingChanges())
	case "dump":
		out, err := r.sess.DumpYAML()
		if err != nil {
			r.printf("dump error: %v\n", err)
			return false
		}
		r.printf("%s", out)
	case "commit":
		r.endTransaction(ctx, xact.Commit)
	case "abort":
		r.endTransaction(ctx, xact.Abort)
	case "prepare":
		r.fire(ctx, xact.Event{Kind: xact.Prepare})
	case "savepoint":
		if len(parts) != 2 {
			r.printf("usage: savepoint <name>\n")
			return false
		}
		sp := r.dispatch.NewSavepoint(parts[1])
		r.savepoints[sp.Name] = sp
		r.fire(ctx, xact.Event{Kind: xact.SavepointStart, Savepoint: sp})
	case "release", "rollback":
		if len(parts) != 2 {
			r.printf("usage: %s <name>\n", cmd)
			return false
		}
		sp, ok := r.savepoints[parts[1]]
		if !ok {
			r.printf("unknown savepoint %q\n", parts[1])
			return false
		}
		delete(r.savepoints, sp.Name)
		kind := xact.SavepointCommit
		if cmd == "rollback" {
			kind = xact.SavepointAbort
		}
		r.fire(ctx, xact.Event{Kind: kind, Savepoint: sp})
	case "seed":
		if len(parts) != 2 {
			r.printf("usage: seed <x>\n")
			return false
		}
		x, err := strconv.Atoi(parts[1])
		if err != nil || x < 1 {
			r.printf("seed: x must be a positive integer\n")
			return false
		}
		r.runSeed(ctx, x)
	case "history":
		if r.history == nil {
			r.printf("history disabled\n")
			return false
		}
		n := 0
		if len(parts) == 2 {
			n, _ = strconv.Atoi(parts[1])
		}
		for i, line := range r.history.list(n) {
			r.printf("%4d  %s\n", i+1, line)
		}
	case "help":
		r.printf("commands: %s\n", strings.Join(commandNames, " "))
	case "exit", "quit":
		return true
	default:
		r.printf("unknown command\n")
	}
	return false
}

func (r *repl) endTransaction(ctx context.Context, kind xact.EventKind) {
	if r.fire(ctx, xact.Event{Kind: kind}) {
		clear(r.savepoints)
	}
}

// fire queues ev and drains it immediately. It reports whether every
// listener succeeded.
func (r *repl) fire(ctx context.Context, ev xact.Event) bool {
	if err := r.dispatch.Fire(ev); err != nil {
		r.printf("%s error: %v\n", ev.Kind, err)
		return false
	}
	if err := r.dispatch.Drain(ctx); err != nil {
		r.printf("%s error: %v\n", ev.Kind, err)
		return false
	}
	r.printf("ok\n")
	return true
}

// applySeed sets and commits the configured startup attributes.
func (r *repl) applySeed(seed map[string]any) error {
	if len(seed) == 0 {
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(seed)) {
		r.sess.SetAttribute(name, seed[name])
	}
	if err := r.dispatch.Fire(xact.Event{Kind: xact.Commit}); err != nil {
		return err
	}
	if err := r.dispatch.Drain(context.Background()); err != nil {
		return err
	}
	common.Logf("applied %d configured attributes", len(seed))
	return nil
}
