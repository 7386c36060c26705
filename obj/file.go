package obj

import (
	"io"

	"github.com/BurntSushi/toml"
)

// Save serializes the module as a TOML object file. Every field of the
// model round-trips losslessly through Save and Load.
func (mod *Module) Save(w io.Writer) (err error) {
	return toml.NewEncoder(w).Encode(mod)
}

// Load deserializes a TOML object file and validates it.
func Load(r io.Reader) (mod *Module, err error) {
	mod = &Module{}
	_, err = toml.NewDecoder(r).Decode(mod)
	if err != nil {
		return nil, err
	}

	err = mod.Validate()
	if err != nil {
		return nil, err
	}

	return
}
