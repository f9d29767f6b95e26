package w1

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/onewire"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("28-0000070e41ac")
	require.NoError(t, err)
	assert.Equal(t, byte(0x28), id.Family())
	assert.Equal(t, "DS18B20", id.FamilyName())
	assert.Equal(t, uint64(0x0000070e41ac28), uint64(id.Address)&0x00FFFFFFFFFFFFFF)

	var rom [8]byte
	binary.LittleEndian.PutUint64(rom[:], uint64(id.Address))
	assert.True(t, onewire.CheckCRC(rom[:]))
}

func TestParseID_Family(t *testing.T) {
	id, err := ParseID("10-000802b4c5d1")
	require.NoError(t, err)
	assert.Equal(t, "DS18S20", id.FamilyName())
}

func TestParseID_Invalid(t *testing.T) {
	for _, name := range []string{"", "pool", "28-", "28-0000066f92", "zz-0000066f9276", "28-00000g6f9276", "280000066f9276"} {
		_, err := ParseID(name)
		assert.Error(t, err, name)
	}
}
