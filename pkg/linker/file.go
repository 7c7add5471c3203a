package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"weld/pkg/utils"
)

type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

func NewFile(name string) (*File, error) {
	contents, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return &File{Name: name, Contents: contents}, nil
}

func MustNewFile(name string) *File {
	file, err := NewFile(name)
	utils.MustNo(err)
	return file
}

type FileType = uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty
	FileTypeObject
	FileTypeShared
	FileTypeArchive
)

func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}

	if CheckMagic(contents) && len(contents) >= Ehdr32Size {
		order := binary.ByteOrder(binary.LittleEndian)
		if contents[elf.EI_DATA] == byte(elf.ELFDATA2MSB) {
			order = binary.BigEndian
		}
		et := elf.Type(order.Uint16(contents[16:]))
		switch et {
		case elf.ET_REL:
			return FileTypeObject
		case elf.ET_DYN:
			return FileTypeShared
		}
		return FileTypeUnknown
	}

	if bytes.HasPrefix(contents, []byte("!<arch>\n")) {
		return FileTypeArchive
	}

	return FileTypeUnknown
}
