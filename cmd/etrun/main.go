// Command etrun interprets one program file and prints its output; with no
// file argument it starts a line REPL.
//
// Usage: etrun [program.et]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmay/ettext"
)

func main() {
	flag.Parse()

	switch len(flag.Args()) {
	case 0:
		runREPL()
		return
	case 1:
		runFile(flag.Args()[0])
		return
	default:
		fmt.Fprintln(os.Stderr, "Usage: etrun [program.et]")
		os.Exit(64)
	}
}

func runFile(filename string) {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	output, status := ettext.Interpret(string(source))
	fmt.Print(output)
	if status != ettext.StatusOk {
		os.Exit(1)
	}
}
