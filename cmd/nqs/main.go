package main

import (
	"fmt"
	"io"
	"os"

	"nqs/internal/errors"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs one CLI invocation and releases everything it opened.
func execute(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// reportError prints err followed by any suggested fixes for its code.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, fix := range errors.GetSuggestedFixes(errors.CodeOf(err)) {
		if fix.Command != "" {
			fmt.Fprintf(w, "  try: %s\n", fix.Command)
		} else {
			fmt.Fprintf(w, "  hint: %s\n", fix.Description)
		}
	}
}
