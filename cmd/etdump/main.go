// Command etdump compiles a program and prints its disassembled bytecode
// without running it.
//
// Usage: etdump <program.et>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmay/ettext"
)

func main() {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Println("Usage: etdump <program.et>")
		os.Exit(64)
	}

	filename := flag.Args()[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	listing, err := ettext.Disassemble(string(source), filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(listing)
}
