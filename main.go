// This is the main-driver for our compiler.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/skx/nasmgo/compiler"
)

func main() {

	//
	// Look for flags.
	//
	debug := flag.Bool("debug", false, "Insert debug \"stuff\" in our generated output.")
	compile := flag.Bool("compile", false, "Compile the program, via invoking nasm and ld.")
	output := flag.String("o", "", "Write generated assembly to this file, instead of STDOUT.")
	program := flag.String("filename", "a.out", "The binary to write, when compiling.")
	builtinDir := flag.String("builtin-dir", "", "Read builtin assembly stubs from this directory, instead of the embedded copies.")
	run := flag.Bool("run", false, "Run the binary, post-compile.")
	flag.Parse()

	//
	// If we're running we're also compiling.
	//
	if *run {
		*compile = true
	}

	//
	// Ensure we have a source file as our single argument.
	//
	if len(flag.Args()) != 1 {
		fmt.Printf("Usage: nasmgoc [flags] file.nm\n")
		os.Exit(1)
	}

	source, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		fmt.Printf("Error reading %s: %s\n", flag.Args()[0], err)
		os.Exit(1)
	}

	//
	// Create a compiler-object, with the program as input.
	//
	comp := compiler.New(string(source))

	//
	// Are we inserting debugging "stuff" ?
	//
	if *debug {
		comp.SetDebug(true)
	}

	if *builtinDir != "" {
		comp.SetBuiltinDir(*builtinDir)
	}

	//
	// Compile
	//
	out, err := comp.Compile()
	if err != nil {
		fmt.Printf("Error compiling: %s\n", err.Error())
		os.Exit(1)
	}

	//
	// If we're not assembling the program then either write it to the
	// requested output file, or STDOUT, and terminate.
	//
	if !*compile {
		if *output == "" {
			fmt.Printf("%s", out)
			return
		}
		if err := os.WriteFile(*output, []byte(out), 0644); err != nil {
			fmt.Printf("Error writing %s: %s\n", *output, err)
			os.Exit(1)
		}
		return
	}

	//
	// OK we're assembling and linking the program, via nasm and ld.
	//
	// Unlike gcc's "-x assembler -" mode, nasm needs to seek on its
	// input when targeting "-f elf64", so we can't pipe our generated
	// text directly into its STDIN: we spill it to a temporary file
	// first.
	//
	asmFile, err := os.CreateTemp("", "nasmgo-*.asm")
	if err != nil {
		fmt.Printf("Error creating temporary file: %s\n", err)
		os.Exit(1)
	}
	defer os.Remove(asmFile.Name())

	if _, err := asmFile.Write([]byte(out)); err != nil {
		fmt.Printf("Error writing temporary file: %s\n", err)
		os.Exit(1)
	}
	asmFile.Close()

	objFile := asmFile.Name() + ".o"
	defer os.Remove(objFile)

	nasm := exec.Command("nasm", "-f", "elf64", "-o", objFile, asmFile.Name())
	nasm.Stdout = os.Stdout
	nasm.Stderr = os.Stderr
	if err := nasm.Run(); err != nil {
		fmt.Printf("Error launching nasm: %s\n", err)
		os.Exit(1)
	}

	ld := exec.Command("ld", "-o", *program, objFile)
	ld.Stdout = os.Stdout
	ld.Stderr = os.Stderr
	if err := ld.Run(); err != nil {
		fmt.Printf("Error launching ld: %s\n", err)
		os.Exit(1)
	}

	//
	// Running the binary too?
	//
	if *run {
		exe := exec.Command(*program)
		exe.Stdout = os.Stdout
		exe.Stderr = os.Stderr
		var stdin bytes.Buffer
		exe.Stdin = &stdin
		if err := exe.Run(); err != nil {
			fmt.Printf("Error launching %s: %s\n", *program, err)
			os.Exit(1)
		}
	}
}
