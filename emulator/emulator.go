package emulator

import (
	"io"

	"github.com/dragan-mitrasinovic/RiscToolchain/cpu"
	"github.com/dragan-mitrasinovic/RiscToolchain/linker"
)

// Machine is the emulated system: the processor plus its terminal and
// timer devices.
type Machine struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the processor simulation.

	Terminal Terminal // Character device at term_out/term_in.
	Timer    Timer    // Periodic interrupt source at tim_cfg.
}

// NewMachine creates a machine with the devices mapped and the
// processor reset to the default entry point.
func NewMachine() (m *Machine) {
	m = &Machine{
		Cpu: cpu.New(),
	}

	m.Terminal.attach(m.Cpu)
	m.Timer.attach(m.Cpu)
	m.Cpu.Devices = []cpu.Device{&m.Terminal, &m.Timer}

	return
}

// Load copies an executable image into memory.
func (m *Machine) Load(im *linker.Image) {
	for _, seg := range im.Segments {
		for n, value := range seg.Data {
			m.Cpu.Mem.Write8(seg.Base+uint32(n), value)
		}
	}
}

// LoadHex reads the textual image encoding and loads it.
func (m *Machine) LoadHex(r io.Reader) (err error) {
	im, err := linker.ReadHex(r)
	if err != nil {
		return
	}
	m.Load(im)
	return
}

// Reset restarts execution at entry; memory keeps the loaded image.
func (m *Machine) Reset(entry uint32) {
	m.Cpu.Reset(entry)
}

// Tick runs one machine cycle: the devices advance, then the
// processor executes one instruction.
func (m *Machine) Tick() (err error) {
	m.Cpu.Verbose = m.Verbose

	m.Terminal.poll()
	m.Timer.step()

	err = m.Cpu.Tick()
	if err != nil {
		err = &ErrRuntime{Tick: m.Cpu.Ticks, Err: err}
	}

	return
}

// Run executes until the processor halts or faults.
func (m *Machine) Run() (err error) {
	for !m.Cpu.Halted {
		err = m.Tick()
		if err != nil {
			return
		}
	}
	return
}
