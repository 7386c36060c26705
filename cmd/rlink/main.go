package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dragan-mitrasinovic/RiscToolchain/linker"
	"github.com/dragan-mitrasinovic/RiscToolchain/obj"
)

// placements collects repeated -place section@addr flags.
type placements map[string]uint32

func (p placements) String() string {
	var parts []string
	for name, addr := range p {
		parts = append(parts, fmt.Sprintf("%v@%#x", name, addr))
	}
	return strings.Join(parts, ",")
}

func (p placements) Set(arg string) error {
	name, at, ok := strings.Cut(arg, "@")
	if !ok || name == "" {
		return fmt.Errorf("expected section@addr, got %q", arg)
	}
	addr, err := strconv.ParseUint(at, 0, 32)
	if err != nil {
		return err
	}
	p[name] = uint32(addr)
	return nil
}

func main() {
	var output string
	place := placements{}

	flag.StringVar(&output, "o", "out.hex", "Image file to write")
	flag.Var(place, "place", "Place a section at an address (section@addr)")

	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("%v: expected object files", os.Args[0])
	}

	var modules []*obj.Module
	for _, path := range flag.Args() {
		inf, err := os.Open(path)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}

		module, err := obj.Load(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}

		modules = append(modules, module)
	}

	image, err := linker.Link(modules, place)
	if err != nil {
		log.Fatal(err)
	}

	ouf, err := os.Create(output)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
	defer ouf.Close()

	err = image.WriteHex(ouf)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}
