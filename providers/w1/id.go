package w1

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/onewire"
)

// ID is a decoded sysfs sensor name such as "28-0000066f9276".
type ID struct {
	Name    string
	Address onewire.Address
}

func (id ID) Family() byte {
	return byte(id.Address & 0xFF)
}

func (id ID) FamilyName() string {
	switch id.Family() {
	case 0x10:
		return "DS18S20"
	case 0x22:
		return "DS1822"
	case 0x28:
		return "DS18B20"
	case 0x3b:
		return "DS1825"
	case 0x42:
		return "DS28EA00"
	default:
		return "unknown"
	}
}

// ParseID decodes name into a full 64-bit 1-Wire ROM address. The driver
// leaves the CRC byte out of the directory name so it is computed here.
func ParseID(name string) (ID, error) {
	fam, serial, ok := strings.Cut(name, "-")
	if !ok || len(fam) != 2 || len(serial) != 12 {
		return ID{}, fmt.Errorf("w1: %q is not of the form FF-SSSSSSSSSSSS", name)
	}
	f, err := strconv.ParseUint(fam, 16, 8)
	if err != nil {
		return ID{}, fmt.Errorf("w1: family of %q: %w", name, err)
	}
	s, err := strconv.ParseUint(serial, 16, 48)
	if err != nil {
		return ID{}, fmt.Errorf("w1: serial of %q: %w", name, err)
	}
	var rom [8]byte
	rom[0] = byte(f)
	for i := 0; i < 6; i++ {
		rom[i+1] = byte(s >> (8 * i))
	}
	rom[7] = onewire.CalcCRC(rom[:7])
	return ID{Name: name, Address: onewire.Address(binary.LittleEndian.Uint64(rom[:]))}, nil
}
