package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dragan-mitrasinovic/RiscToolchain/asm"
)

func main() {
	var output string
	var verbose bool

	flag.StringVar(&output, "o", "", "Object file to write")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one source file, got: %v", os.Args[0], flag.Args())
	}
	source := flag.Arg(0)

	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if output == "" {
		output = name + ".o"
	}

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	parser := &asm.Parser{Verbose: verbose}
	unit, err := parser.Parse(name, inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	module, err := asm.Assemble(unit)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	ouf, err := os.Create(output)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
	defer ouf.Close()

	err = module.Save(ouf)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}
