package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func newRegistry() *Registry {
	r := NewRegistry()
	r.Register(&planCommand{})
	r.Register(&craftCommand{})
	r.Register(&craftableCommand{})
	r.Register(&recipeCommand{})
	r.Register(&inventoryCommand{})
	r.Register(&landCommand{})
	r.Register(&landsCommand{})
	r.Register(&placeCommand{})
	r.Register(&createLandCommand{})
	r.Register(&unlockOnceCommand{})
	r.Register(&farmCommand{})
	r.Register(&serveCommand{})
	r.Register(&migrateCommand{})
	r.Register(&errorsCommand{})
	return r
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	_ = godotenv.Load()

	registry := newRegistry()
	if len(args) < 1 {
		registry.PrintHelp(os.Stderr)
		return exitUsage
	}

	cmd, ok := registry.Get(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		registry.PrintHelp(os.Stderr)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name(), err)
		return exitError
	}
	return exitOK
}
