package linker

import (
	"bytes"
	"strconv"
	"strings"
	"unsafe"

	"weld/pkg/utils"
)

type ArHeader struct {
	Name [16]byte
	Date [12]byte
	UID  [6]byte
	GID  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

const ArHeaderSize = int(unsafe.Sizeof(ArHeader{}))

func (h *ArHeader) hasPrefix(s string) bool {
	return strings.HasPrefix(string(h.Name[:]), s)
}

func (h *ArHeader) IsStrtab() bool {
	return h.hasPrefix("// ")
}

func (h *ArHeader) IsSymtab() bool {
	return h.hasPrefix("/ ") || h.hasPrefix("/SYM64/ ")
}

func (h *ArHeader) GetSize() int {
	size, err := strconv.Atoi(strings.TrimSpace(string(h.Size[:])))
	utils.MustNo(err)
	return size
}

func (h *ArHeader) ReadName(strTab []byte) string {
	// A long name is "/offset" into the archive string table, terminated
	// by "/\n" there.
	if h.hasPrefix("/") {
		start, err := strconv.Atoi(strings.TrimSpace(string(h.Name[1:])))
		utils.MustNo(err)
		end := start + bytes.Index(strTab[start:], []byte("/\n"))
		return string(strTab[start:end])
	}

	// A short name is terminated by "/".
	end := bytes.IndexByte(h.Name[:], '/')
	utils.Assert(end != -1)
	return string(h.Name[:end])
}

func ReadArchiveMembers(file *File) []*File {
	utils.Assert(GetFileType(file.Contents) == FileTypeArchive)

	// skip 8 bytes "!<arch>\n"
	pos := 8

	var strTab []byte
	var files []*File
	// Members are aligned to 2 bytes with "\n" fill.
	for len(file.Contents)-pos > 1 {
		if pos%2 == 1 {
			pos++
		}

		hdr := utils.Read[ArHeader](file.Contents[pos:])
		dataStart := pos + ArHeaderSize
		pos = dataStart + hdr.GetSize()
		dataEnd := pos
		contents := file.Contents[dataStart:dataEnd]

		if hdr.IsSymtab() {
			continue
		} else if hdr.IsStrtab() {
			strTab = contents
			continue
		}

		files = append(files, &File{
			Name:     hdr.ReadName(strTab),
			Contents: contents,
			Parent:   file,
		})
	}

	return files
}
