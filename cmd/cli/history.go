package main

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

const maxHistorySize = 1000

// History keeps REPL commands across runs in a plain text file.
type History struct {
	commands []string
	file     string
}

func newHistory(file string) (*History, error) {
	if file == "" {
		return nil, errors.New("no history file configured")
	}

	h := &History{
		commands: make([]string, 0, maxHistorySize),
		file:     file,
	}

	// Load existing history
	if err := h.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return h, nil
}

func (h *History) load() error {
	f, err := os.Open(h.file)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		h.add(scanner.Text())
	}

	return scanner.Err()
}

func (h *History) add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	// Don't add duplicates of the last command
	if len(h.commands) > 0 && h.commands[len(h.commands)-1] == cmd {
		return
	}

	h.commands = append(h.commands, cmd)

	if len(h.commands) > maxHistorySize {
		h.commands = h.commands[len(h.commands)-maxHistorySize:]
	}
}

// save replaces the history file atomically.
func (h *History) save() error {
	var b strings.Builder
	for _, cmd := range h.commands {
		b.WriteString(cmd)
		b.WriteByte('\n')
	}

	return atomic.WriteFile(h.file, strings.NewReader(b.String()))
}

func (h *History) list(n int) []string {
	if n <= 0 || n > len(h.commands) {
		n = len(h.commands)
	}

	start := len(h.commands) - n
	return h.commands[start:]
}
