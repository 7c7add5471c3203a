package linker

import (
	"debug/elf"
	"encoding/binary"
	"strings"

	"github.com/dolthub/swiss"

	"weld/pkg/stringpool"
	"weld/pkg/utils"
)

// SymbolKey indexes the table by canonical name and version keys. A
// version key of 0 means "no version".
type SymbolKey struct {
	Name    stringpool.Key
	Version stringpool.Key
}

// SymbolTable merges the global symbols of every input into one canonical
// set. The table is single-writer: callers serialize AddFromRelobj and
// AddFromDynobj per input object in link order.
type SymbolTable struct {
	class     Class
	byteOrder binary.ByteOrder

	table      *swiss.Map[SymbolKey, *Symbol]
	namePool   *stringpool.Pool
	forwarders map[*Symbol]*Symbol
	commons    []*Symbol

	sawUndefined int

	offset      uint64
	outputCount int
	final       []*Symbol

	warnings *Warnings
	diag     *Diag
}

func NewSymbolTable(diag *Diag) *SymbolTable {
	return &SymbolTable{
		table:      swiss.NewMap[SymbolKey, *Symbol](256),
		namePool:   stringpool.NewPool(),
		forwarders: make(map[*Symbol]*Symbol),
		warnings:   NewWarnings(diag),
		diag:       diag,
	}
}

func (st *SymbolTable) Class() Class {
	return st.class
}

// SawUndefined counts every transition of a record to undefined. Archive
// group rescans compare it across passes.
func (st *SymbolTable) SawUndefined() int {
	return st.sawUndefined
}

// Commons lists the records that became common symbols, in the order they
// did so.
func (st *SymbolTable) Commons() []*Symbol {
	return st.commons
}

func (st *SymbolTable) Warnings() *Warnings {
	return st.warnings
}

// CanonicalizeName interns NAME and returns its canonical string.
func (st *SymbolTable) CanonicalizeName(name string) string {
	canonical, _ := st.namePool.Add(name)
	return canonical
}

// Lookup finds the record for (name, version); version "" means
// unversioned. Returns nil if either string has never been seen.
func (st *SymbolTable) Lookup(name, version string) *Symbol {
	_, nameKey, ok := st.namePool.Find(name)
	if !ok {
		return nil
	}
	versionKey := stringpool.Key(0)
	if version != "" {
		_, versionKey, ok = st.namePool.Find(version)
		if !ok {
			return nil
		}
	}
	sym, _ := st.table.Get(SymbolKey{nameKey, versionKey})
	return sym
}

// makeForwarder records that FROM has been superseded by TO. FROM leaves
// the hash index but stays allocated: earlier-ingested objects still hold
// pointers to it.
func (st *SymbolTable) makeForwarder(from, to *Symbol) {
	utils.Assert(from != to)
	utils.Assert(!from.IsForwarder && !to.IsForwarder)
	st.forwarders[from] = to
	from.IsForwarder = true
}

// ResolveForwards follows a superseded record to the live one.
func (st *SymbolTable) ResolveForwards(from *Symbol) *Symbol {
	if !from.IsForwarder {
		return from
	}
	to, ok := st.forwarders[from]
	utils.Assert(ok)
	return to
}

// checkObject fixes the table's class and endianness from the first input
// and rejects later inputs that disagree.
func (st *SymbolTable) checkObject(obj Object) {
	target := obj.Target()
	if st.class == ClassNone {
		st.class = target.Class
		st.byteOrder = target.ByteOrder
	}
	if st.class != target.Class {
		st.diag.Fatalf("%s: mixing 32-bit and 64-bit ELF objects", obj.Name())
	}
	if st.byteOrder != target.ByteOrder {
		st.diag.Fatalf("%s: mixing little- and big-endian ELF objects", obj.Name())
	}
}

// addFromObject is the merge primitive. NAME and VERSION are canonical;
// DEF says the version is the default version, which makes (name, "")
// and (name, version) resolve to the same record from now on.
func (st *SymbolTable) addFromObject(object Object, name string,
	nameKey stringpool.Key, version string, versionKey stringpool.Key,
	def bool, esym *Sym) *Symbol {

	key := SymbolKey{nameKey, versionKey}
	defKey := SymbolKey{nameKey, 0}

	cur, found := st.table.Get(key)

	var defSym *Symbol
	defFound := false
	if def {
		defSym, defFound = st.table.Get(defKey)
	}

	var ret *Symbol
	wasUndefined := false
	wasCommon := false

	if found {
		// We already have an entry for (name, version).
		ret = cur
		wasUndefined = ret.IsUndefined()
		wasCommon = ret.IsCommon()

		st.resolve(ret, esym, object)

		if def {
			if !defFound {
				// First time we see the unversioned name: alias
				// it to the default-version record.
				st.table.Put(defKey, ret)
			} else if defSym != ret {
				// Both (name, version) and (name, "") already
				// have independent records. Collapse them: merge
				// the unversioned record in, then leave it behind
				// as a forwarder since objects ingested earlier
				// still point at it.
				st.resolveSymbols(ret, defSym)
				st.makeForwarder(defSym, ret)
				st.table.Put(defKey, ret)
			}
		}
	} else if def && defFound {
		// First time we see (name, version), but the unversioned name
		// exists: share its record.
		ret = defSym
		wasUndefined = ret.IsUndefined()
		wasCommon = ret.IsCommon()
		st.resolve(ret, esym, object)
		st.table.Put(key, ret)
	} else {
		target := object.Target()
		if !target.HasMakeSymbol() {
			ret = &Symbol{}
		} else {
			ret = target.MakeSymbol()
			if ret == nil {
				// The target does not want a symbol table entry
				// after all.
				return nil
			}
			ret.IsTargetSpecial = true
		}

		ret.InitFromObject(name, version, object, esym)
		st.table.Put(key, ret)
		if def {
			st.table.Put(defKey, ret)
		}
	}

	// Track new undefineds for archive rescans and new commons for
	// common allocation.
	if !wasUndefined && ret.IsUndefined() {
		st.sawUndefined++
	}
	if !wasCommon && ret.IsCommon() {
		st.commons = append(st.commons, ret)
	}

	return ret
}

// AddFromRelobj merges the global symbols of a relocatable object. SYMS
// holds COUNT raw records in the object's class and byte order, SYMNAMES
// is the companion string table, and SYMPOINTERS receives the merged
// record for each input position so relocation processing can find the
// winner.
func (st *SymbolTable) AddFromRelobj(obj Object, syms []byte, count int,
	symNames []byte, sympointers []*Symbol) {

	st.checkObject(obj)
	utils.Assert(len(sympointers) >= count)

	symSize := SymSize(st.class)

	for i := 0; i < count; i++ {
		esym := ReadSym(syms[i*symSize:], st.class, st.byteOrder)

		if esym.Name >= uint32(len(symNames)) {
			st.diag.Fatalf("%s: bad global symbol name offset %d at %d",
				obj.Name(), esym.Name, i)
		}
		name := GetNameFromTable(symNames, esym.Name)

		// A symbol defined in a section we are not including must be
		// treated as an undefined reference. ReadSym decoded into a
		// scratch copy, so rewrite in place.
		if esym.Shndx != uint16(elf.SHN_UNDEF) &&
			esym.Shndx < uint16(elf.SHN_LORESERVE) &&
			!obj.IsSectionIncluded(esym.Shndx) {
			esym.Shndx = uint16(elf.SHN_UNDEF)
		}

		// An '@' separates the symbol name from the version; '@@'
		// marks the default version.
		var res *Symbol
		if at := strings.IndexByte(name, '@'); at < 0 {
			cname, nameKey := st.namePool.Add(name)
			res = st.addFromObject(obj, cname, nameKey, "", 0, false, &esym)
		} else {
			cname, nameKey := st.namePool.Add(name[:at])

			ver := name[at+1:]
			def := false
			if strings.HasPrefix(ver, "@") {
				def = true
				ver = ver[1:]
			}
			cver, verKey := st.namePool.Add(ver)

			res = st.addFromObject(obj, cname, nameKey, cver, verKey,
				def, &esym)
		}

		sympointers[i] = res
	}
}

// AddFromDynobj merges the dynamic symbols of a shared object. VERSYM is
// the raw .gnu.version stream (two bytes per symbol) or nil, and
// VERSIONMAP maps version indexes to version names ("" for gaps).
func (st *SymbolTable) AddFromDynobj(obj Object, syms []byte, count int,
	symNames []byte, versym []byte, versionMap []string) {

	st.checkObject(obj)

	if versym != nil && len(versym)/2 < count {
		st.diag.Fatalf("%s: too few symbol versions", obj.Name())
	}

	symSize := SymSize(st.class)

	for i := 0; i < count; i++ {
		esym := ReadSym(syms[i*symSize:], st.class, st.byteOrder)

		// Local symbols are not visible outside the object.
		if esym.Bind() == elf.STB_LOCAL {
			continue
		}

		if esym.Name >= uint32(len(symNames)) {
			st.diag.Fatalf("%s: bad symbol name offset %d at %d",
				obj.Name(), esym.Name, i)
		}
		name := GetNameFromTable(symNames, esym.Name)

		if versym == nil {
			cname, nameKey := st.namePool.Add(name)
			st.addFromObject(obj, cname, nameKey, "", 0, false, &esym)
			continue
		}

		v := st.byteOrder.Uint16(versym[2*i:])
		hidden := v&VersymHidden != 0
		v &= VersymVersion

		if v == VerNdxLocal {
			continue
		}

		cname, nameKey := st.namePool.Add(name)

		if v == VerNdxGlobal {
			st.addFromObject(obj, cname, nameKey, "", 0, false, &esym)
			continue
		}

		if int(v) >= len(versionMap) {
			st.diag.Fatalf("%s: versym for symbol %d out of range: %d",
				obj.Name(), i, v)
		}
		version := versionMap[v]
		if version == "" {
			st.diag.Fatalf("%s: versym for symbol %d has no name: %d",
				obj.Name(), i, v)
		}

		cver, verKey := st.namePool.Add(version)

		// An absolute symbol whose name equals its version is the
		// version definition anchor; record it unversioned.
		if esym.IsAbs() && nameKey == verKey {
			st.addFromObject(obj, cname, nameKey, "", 0, false, &esym)
			continue
		}

		def := !hidden && !esym.IsUndef()

		st.addFromObject(obj, cname, nameKey, cver, verKey, def, &esym)
	}
}
