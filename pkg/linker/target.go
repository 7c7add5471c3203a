package linker

import (
	"debug/elf"
	"encoding/binary"
)

// Target describes the architecture being linked for. MakeSymbol is an
// optional back-end hook: when set, the symbol table allocates records
// through it so a target can attach its own state to symbols. A hook that
// returns nil tells the table not to add the symbol at all.
type Target struct {
	Class      Class
	ByteOrder  binary.ByteOrder
	Machine    elf.Machine
	MakeSymbol func() *Symbol
}

func (t *Target) IsBigEndian() bool {
	return t.ByteOrder == binary.BigEndian
}

func (t *Target) HasMakeSymbol() bool {
	return t.MakeSymbol != nil
}
