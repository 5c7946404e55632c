package p6k

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSixKCommands(t *testing.T) {
	d := ForDialect("")

	require.Equal(t, "!2S", d.ArmAbsoluteSet(2))
	require.Equal(t, "2PSET1000", d.SetDrivePosition(2, 1000))
	require.Equal(t, "2PESET2000", d.SetEncoderPosition(2, 2000))
	require.Equal(t, "TSS", d.GlobalStatus())
	require.Equal(t, "3TAS", d.AxisStatus(3))
	require.Equal(t, "3TPC", d.DrivePosition(3))
	require.Equal(t, "3TPE", d.EncoderPosition(3))
}

func TestSixKMoveClauses(t *testing.T) {
	d := ForDialect("6K")

	require.Equal(t, "#1J=100.00", d.MoveClause(1, 100.0, false))
	require.Equal(t, "#2J^50.00", d.MoveClause(2, 50.0, true))
	require.Equal(t, "#3J=-25.00", d.MoveClause(3, -25.0, false))

	combined := d.JoinDeferred([]string{"#1J=100.00", "#2J^50.00"})
	require.Equal(t, "#1J=100.00 #2J^50.00", combined)
}

func TestParseAxisStatus(t *testing.T) {
	d := ForDialect("GEM6K")

	word, err := d.ParseAxisStatus("*2TAS00000001")
	require.NoError(t, err)
	require.True(t, word.Moving)
	require.False(t, word.LimitPlus)

	word, err = d.ParseAxisStatus("*2TAS00000006")
	require.NoError(t, err)
	require.False(t, word.Moving)
	require.True(t, word.LimitPlus)
	require.True(t, word.LimitMinus)
}

func TestParseAxisStatusHexLetters(t *testing.T) {
	d := ForDialect("")

	// Старшие ниблы A..F принадлежат значению, а не эху команды.
	word, err := d.ParseAxisStatus("*2TASAB000001")
	require.NoError(t, err)
	require.Equal(t, uint32(0xAB000001), word.Raw)
	require.True(t, word.Moving)

	word, err = d.ParseAxisStatus("*2TASABCDEFAB")
	require.NoError(t, err)
	require.Equal(t, uint32(0xABCDEFAB), word.Raw)
}

func TestParseAxisStatusMalformed(t *testing.T) {
	d := ForDialect("")

	_, err := d.ParseAxisStatus("")
	require.ErrorIs(t, err, ErrBadResponse)

	_, err = d.ParseAxisStatus("*?")
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestParseGlobalStatus(t *testing.T) {
	d := ForDialect("")

	word, err := d.ParseGlobalStatus("*TSS001000")
	require.NoError(t, err)
	require.Equal(t, uint32(0x1000), word)

	word, err = d.ParseGlobalStatus("*TSSF00001")
	require.NoError(t, err)
	require.Equal(t, uint32(0xF00001), word)

	_, err = d.ParseGlobalStatus("")
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestParseCounter(t *testing.T) {
	d := ForDialect("")

	counter, err := d.ParseCounter("*2TPC-1234")
	require.NoError(t, err)
	require.Equal(t, -1234, counter)

	counter, err = d.ParseCounter("*2TPE5678")
	require.NoError(t, err)
	require.Equal(t, 5678, counter)

	_, err = d.ParseCounter("*2TPC")
	require.ErrorIs(t, err, ErrBadResponse)
}
