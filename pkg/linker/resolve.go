package linker

import "debug/elf"

// defClass partitions symbols for the merge rule: a symbol is exactly one
// of undefined, common or defined.
type defClass uint8

const (
	classUndefined defClass = iota
	classCommon
	classDefined
)

func classify(shndx uint16) defClass {
	switch shndx {
	case uint16(elf.SHN_UNDEF):
		return classUndefined
	case uint16(elf.SHN_COMMON):
		return classCommon
	default:
		return classDefined
	}
}

// visibilityRank orders visibilities from least to most restrictive.
func visibilityRank(v elf.SymVis) int {
	switch v {
	case elf.STV_PROTECTED:
		return 1
	case elf.STV_HIDDEN:
		return 2
	case elf.STV_INTERNAL:
		return 3
	default:
		return 0
	}
}

// override replaces the symbol's payload with the incoming ELF record.
// Visibility is composed separately by resolve.
func (s *Symbol) override(esym *Sym, object Object) {
	s.Source = FromObject
	s.Object = object
	s.Shndx = esym.Shndx
	s.Value = esym.Value
	s.SymSize = esym.Size
	s.Type = esym.Type()
	s.Binding = esym.Bind()
	s.Nonvis = esym.Nonvis()
	s.IsDef = !esym.IsUndef()
}

// resolve merges the incoming ELF symbol from OBJECT into TO, which stays
// the canonical record for its (name, version).
func (st *SymbolTable) resolve(to *Symbol, esym *Sym, object Object) {
	// The most restrictive visibility survives no matter which side wins.
	if visibilityRank(esym.Visibility()) > visibilityRank(to.Visibility) {
		to.Visibility = esym.Visibility()
	}
	if object.IsDynamic() {
		to.InDyn = true
	}

	var curClass defClass
	if to.Source != FromObject {
		curClass = classDefined
	} else {
		curClass = classify(to.Shndx)
	}
	newClass := classify(esym.Shndx)

	curWeak := to.Binding == elf.STB_WEAK
	newWeak := esym.Bind() == elf.STB_WEAK
	curDyn := to.IsFromDynobj()
	newDyn := object.IsDynamic()

	switch curClass {
	case classDefined:
		if newClass != classDefined {
			return
		}
		// A definition in a regular object beats one in a shared
		// object, silently.
		if curDyn != newDyn {
			if curDyn {
				to.override(esym, object)
			}
			return
		}
		switch {
		case !curWeak && !newWeak:
			if !curDyn {
				st.diag.Errorf("%s: multiple definition of %s",
					object.Name(), to.Name)
			}
		case curWeak && !newWeak:
			to.override(esym, object)
		default:
			// Incoming is weak; the first definition wins.
		}

	case classCommon:
		switch newClass {
		case classDefined:
			// A real definition overrides a common, but only a
			// strong one.
			if !newWeak {
				to.override(esym, object)
			}
		case classCommon:
			// Max-size merge. For a common, st_value holds the
			// required alignment, so keep the stricter one too.
			if esym.Size > to.SymSize {
				to.SymSize = esym.Size
			}
			if esym.Value > to.Value {
				to.Value = esym.Value
			}
		case classUndefined:
		}

	case classUndefined:
		switch newClass {
		case classDefined, classCommon:
			to.override(esym, object)
		case classUndefined:
			if curWeak && !newWeak {
				to.Binding = esym.Bind()
			}
		}
	}
}

// resolveSymbols re-applies the merge rule using FROM's current state as
// the incoming view. Used when a default-version definition collapses two
// previously independent records.
func (st *SymbolTable) resolveSymbols(to, from *Symbol) {
	if from.Source != FromObject {
		return
	}
	esym := Sym{
		Info:  StInfo(from.Binding, from.Type),
		Other: StOther(from.Visibility, from.Nonvis),
		Shndx: from.Shndx,
		Value: from.Value,
		Size:  from.SymSize,
	}
	st.resolve(to, &esym, from.Object)
}
