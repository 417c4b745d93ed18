package table

import (
	"fmt"

	"github.com/dhamidi/ilparse/fault"
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes t deterministically, so the same grammar always yields the
// same bytes.
func Marshal(t *Table) ([]byte, error) {
	c := *t
	if c.Version == 0 {
		c.Version = ABIVersion
	}
	data, err := encMode.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("encode table %s: %w", t.Name, err)
	}
	return data, nil
}

type header struct {
	Version uint32
	Name    string
}

// Unmarshal decodes table bytes after checking their ABI version.
func Unmarshal(data []byte) (*Table, error) {
	var h header
	if err := cbor.Unmarshal(data, &h); err != nil {
		return nil, fault.Wrap(fault.IncompatibleVersion, "load table", fmt.Errorf("unreadable header: %w", err))
	}
	if h.Version != ABIVersion {
		return nil, fault.New(fault.IncompatibleVersion, "load table",
			"table %q has ABI version %d, engine supports %d", h.Name, h.Version, ABIVersion)
	}
	t := &Table{}
	if err := cbor.Unmarshal(data, t); err != nil {
		return nil, fault.Wrap(fault.IncompatibleVersion, "load table", err)
	}
	return t, nil
}
