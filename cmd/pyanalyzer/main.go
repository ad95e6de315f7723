package main

import (
	"log/slog"
	"os"
	"runtime/debug"

	"pyanalyzer/internal/ui/cli"
)

// main recovers panics on its own goroutine only. Scan workers and the
// watch callback recover and log their own.
func main() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pyanalyzer crashed", "panic", r, "stack", string(debug.Stack()))
			os.Exit(2)
		}
	}()
	os.Exit(cli.Execute())
}
