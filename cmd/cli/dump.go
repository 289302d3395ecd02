package main

import (
	"fmt"
	"io"
	"unicode/utf8"

	"shadowkv/internal/common"
	"shadowkv/internal/session"
)

// dumpPending prints uncommitted changes as an OP/NAME/VALUE table.
func dumpPending(w io.Writer, changes []session.PendingChange) {
	fmt.Fprintf(w, "%-6s %-20s  %s\n", "OP", "NAME", "VALUE")
	fmt.Fprintln(w)

	for _, c := range changes {
		name := truncate(c.Name, 20)

		if c.Type == common.EntryTypePut {
			fmt.Fprintf(w, "%-6s %-20s  %v\n", c.Type, name, c.Value)
		} else {
			fmt.Fprintf(w, "%-6s %-20s\n", c.Type, name)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total changes: %d\n", len(changes))
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
