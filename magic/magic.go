package magic

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

type FileType int

const (
	Bitcode FileType = iota
	Object
	Archive
	Unknown
)

var (
	rawBitcode     = []byte{'B', 'C', 0xC0, 0xDE}
	wrapperBitcode = []byte{0xDE, 0xC0, 0x17, 0x0B}
	arMagic        = []byte("!<arch>\n")
	elfMagic       = []byte{0x7F, 'E', 'L', 'F'}
	wasmMagic      = []byte{0x00, 'a', 's', 'm'}
)

func convertFileType(header []byte) FileType {
	switch {
	case bytes.HasPrefix(header, rawBitcode), bytes.HasPrefix(header, wrapperBitcode):
		return Bitcode
	case bytes.HasPrefix(header, arMagic):
		return Archive
	case bytes.HasPrefix(header, elfMagic), bytes.HasPrefix(header, wasmMagic), isMachO(header), isCOFF(header):
		return Object
	}

	return Unknown
}

func isMachO(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	switch binary.LittleEndian.Uint32(header) {
	case 0xFEEDFACE, 0xFEEDFACF, 0xCEFAEDFE, 0xCFFAEDFE:
		return true
	}
	return false
}

func isCOFF(header []byte) bool {
	if len(header) < 2 {
		return false
	}
	switch binary.LittleEndian.Uint16(header) {
	case 0x014C, 0x8664, 0x01C4, 0xAA64:
		return true
	}
	return false
}

func GetFileType(path string) FileType {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()

	header := make([]byte, len(arMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return Unknown
	}
	return convertFileType(header[:n])
}

func IsBitcode(path string) bool {
	return GetFileType(path) == Bitcode
}
