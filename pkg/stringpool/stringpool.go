package stringpool

import (
	"github.com/cespare/xxhash/v2"
)

// Key identifies one unique string in a Pool. Zero is never handed out; the
// symbol table uses key 0 to mean "no version".
type Key uint32

type entry struct {
	str    string
	key    Key
	offset uint32
}

// Pool canonicalizes strings. Add returns a stable canonical string for each
// unique content, so two canonical strings are equal iff their contents are
// equal and callers may compare them directly. A Pool doubles as an output
// string table: every entry gets an offset, with a single NUL at offset 0.
type Pool struct {
	buckets map[uint64][]*entry
	entries []*entry
	size    uint32
}

func NewPool() *Pool {
	return &Pool{
		buckets: make(map[uint64][]*entry),
		size:    1,
	}
}

func (p *Pool) findEntry(s string) *entry {
	h := xxhash.Sum64String(s)
	for _, e := range p.buckets[h] {
		if e.str == s {
			return e
		}
	}
	return nil
}

// Find looks up S without inserting it.
func (p *Pool) Find(s string) (string, Key, bool) {
	e := p.findEntry(s)
	if e == nil {
		return "", 0, false
	}
	return e.str, e.key, true
}

// Add interns S and returns its canonical string and key.
func (p *Pool) Add(s string) (string, Key) {
	if e := p.findEntry(s); e != nil {
		return e.str, e.key
	}

	// Copy so the canonical string does not pin a caller's backing array.
	str := string(append([]byte(nil), s...))
	e := &entry{
		str:    str,
		key:    Key(len(p.entries) + 1),
		offset: p.size,
	}
	p.size += uint32(len(str)) + 1

	h := xxhash.Sum64String(str)
	p.buckets[h] = append(p.buckets[h], e)
	p.entries = append(p.entries, e)
	return e.str, e.key
}

// GetOffset returns the string table offset of S, which must have been added.
func (p *Pool) GetOffset(s string) (uint32, bool) {
	e := p.findEntry(s)
	if e == nil {
		return 0, false
	}
	return e.offset, true
}

func (p *Pool) Len() int {
	return len(p.entries)
}

// Size is the byte size of the serialized string table, including the
// leading NUL.
func (p *Pool) Size() uint32 {
	return p.size
}

// Contents serializes the pool as an ELF string table.
func (p *Pool) Contents() []byte {
	buf := make([]byte, p.size)
	for _, e := range p.entries {
		copy(buf[e.offset:], e.str)
	}
	return buf
}
