package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rmay/ettext"
)

// runREPL implements the line REPL the CLI contract requires when invoked
// with no arguments: each line is interpreted as a standalone program and
// its output (or error) is printed immediately.
func runREPL() {
	fmt.Println("ettext REPL — type 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("et> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		output, status := ettext.Interpret(line)
		if status != ettext.StatusOk {
			fmt.Printf("[%s] %s\n", status, output)
			continue
		}
		fmt.Println(output)
	}
}
