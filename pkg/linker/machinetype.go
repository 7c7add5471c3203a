package linker

import (
	"debug/elf"
	"encoding/binary"

	"weld/pkg/utils"
)

type MachineType = uint8

const (
	MachineTypeNone MachineType = iota
	MachineTypeRISCV64
	MachineTypeX86_64
)

func GetMachineTypeFromContents(contents []byte) MachineType {
	ft := GetFileType(contents)

	switch ft {
	case FileTypeObject, FileTypeShared:
		order := binary.ByteOrder(binary.LittleEndian)
		if contents[elf.EI_DATA] == byte(elf.ELFDATA2MSB) {
			order = binary.BigEndian
		}
		machine := elf.Machine(order.Uint16(contents[18:]))
		class := elf.Class(contents[elf.EI_CLASS])

		switch machine {
		case elf.EM_RISCV:
			if class == elf.ELFCLASS64 {
				return MachineTypeRISCV64
			}
		case elf.EM_X86_64:
			if class == elf.ELFCLASS64 {
				return MachineTypeX86_64
			}
		}
	}

	return MachineTypeNone
}

type MachineTypeStringer struct {
	MachineType
}

func (m MachineTypeStringer) String() string {
	switch m.MachineType {
	case MachineTypeRISCV64:
		return "riscv64"
	case MachineTypeX86_64:
		return "x86_64"
	}

	utils.Assert(m.MachineType == MachineTypeNone)
	return ""
}
