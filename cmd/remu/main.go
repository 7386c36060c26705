package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dragan-mitrasinovic/RiscToolchain/emulator"
	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

func main() {
	var entry uint64
	var input string
	var verbose bool

	flag.Uint64Var(&entry, "entry", uint64(isa.START), "Entry point address")
	flag.StringVar(&input, "i", "-", "Terminal input")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one image file, got: %v", os.Args[0], flag.Args())
	}
	image := flag.Arg(0)

	machine := emulator.NewMachine()
	machine.Verbose = verbose
	machine.Terminal.Output = os.Stdout

	if input == "-" {
		machine.Terminal.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		machine.Terminal.Input = inf
	}

	inf, err := os.Open(image)
	if err != nil {
		log.Fatalf("%v: %v", image, err)
	}
	err = machine.LoadHex(inf)
	inf.Close()
	if err != nil {
		log.Fatalf("%v: %v", image, err)
	}

	machine.Reset(uint32(entry))

	err = machine.Run()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("halted after", machine.Ticks, "ticks")
	fmt.Print(machine.Cpu)
}
