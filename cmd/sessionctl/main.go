package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
)

// Exit codes for sessionctl.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeAuthRequired = 2
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func exitCode(err error) int {
	if errors.Is(err, errAuthRequired) {
		return ExitCodeAuthRequired
	}
	return ExitCodeError
}
