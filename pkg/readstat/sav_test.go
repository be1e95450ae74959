package readstat

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savFixture struct {
	buf bytes.Buffer
}

func (f *savFixture) str(s string) { f.buf.WriteString(s) }

func (f *savFixture) u1(v uint8) { f.buf.WriteByte(v) }

func (f *savFixture) i4(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	f.buf.Write(b[:])
}

func (f *savFixture) f8(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	f.buf.Write(b[:])
}

func (f *savFixture) padded(s string, width int, pad byte) {
	f.buf.WriteString(s)
	for i := len(s); i < width; i++ {
		f.buf.WriteByte(pad)
	}
}

func (f *savFixture) header(caseSize, compression, ncases int32) {
	f.str("$FL2")
	f.padded("@(#) SPSS DATA FILE", 60, ' ')
	f.i4(2)           // layout code
	f.i4(caseSize)    // elements per case
	f.i4(compression) // 0 none, 1 bytecode
	f.i4(0)           // weight index
	f.i4(ncases)
	f.f8(100.0) // compression bias
	f.padded("01 Jan 26", 9, ' ')
	f.padded("00:00:00", 8, ' ')
	f.padded("test file", 64, ' ')
	f.padded("", 3, 0)
}

// numericVar writes a type-2 record for a numeric variable.
func (f *savFixture) numericVar(name, label string) {
	f.i4(2)
	f.i4(0) // numeric
	if label != "" {
		f.i4(1)
	} else {
		f.i4(0)
	}
	f.i4(0)          // no missing values
	f.i4(0)          // print format
	f.i4(0)          // write format
	f.padded(name, 8, ' ')
	if label != "" {
		f.i4(int32(len(label)))
		padded := (len(label) + 3) / 4 * 4
		f.padded(label, padded, ' ')
	}
}

// stringVar writes a type-2 record for a string variable of the given width
// (at most 8 in these fixtures, so no continuation records).
func (f *savFixture) stringVar(name, label string, width int32) {
	f.i4(2)
	f.i4(width)
	if label != "" {
		f.i4(1)
	} else {
		f.i4(0)
	}
	f.i4(0)
	f.i4(0)
	f.i4(0)
	f.padded(name, 8, ' ')
	if label != "" {
		f.i4(int32(len(label)))
		padded := (len(label) + 3) / 4 * 4
		f.padded(label, padded, ' ')
	}
}

// valueLabels writes a type-3/type-4 record pair mapping numeric codes to
// labels for the 1-based dictionary indices.
func (f *savFixture) valueLabels(labels map[float64]string, indices ...int32) {
	f.i4(3)
	f.i4(int32(len(labels)))
	// Deterministic order keeps the fixture reproducible.
	for _, code := range []float64{1, 5} {
		label, ok := labels[code]
		if !ok {
			continue
		}
		f.f8(code)
		f.u1(uint8(len(label)))
		padded := (len(label)+1+7)/8*8 - 1
		f.padded(label, padded, ' ')
	}
	f.i4(4)
	f.i4(int32(len(indices)))
	for _, idx := range indices {
		f.i4(idx)
	}
}

func (f *savFixture) dictEnd() {
	f.i4(999)
	f.i4(0)
}

func TestReadSAVUncompressed(t *testing.T) {
	f := &savFixture{}
	// Three variables: AGE (numeric), CITY (str8), SAT (numeric with labels).
	f.header(3, 0, 3)
	f.numericVar("AGE", "Age of respondent")
	f.stringVar("CITY", "City of residence", 8)
	f.numericVar("SAT", "Overall satisfaction")
	f.valueLabels(map[float64]string{1: "Low", 5: "High"}, 3)
	f.dictEnd()

	cases := []struct {
		age  float64
		city string
		sat  float64
	}{
		{34, "berlin", 5},
		{29, "madrid", 1},
		{savSysmis(), "", 5},
	}
	for _, c := range cases {
		f.f8(c.age)
		f.padded(c.city, 8, ' ')
		f.f8(c.sat)
	}

	table, err := ReadSAV(f.buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"AGE", "CITY", "SAT"}, table.Names)
	assert.Equal(t, []string{"Age of respondent", "City of residence", "Overall satisfaction"}, table.Labels)
	require.Equal(t, 3, table.Rows())

	assert.Equal(t, []string{"34", "29", ""}, table.Columns[0])
	assert.Equal(t, []string{"berlin", "madrid", ""}, table.Columns[1])
	assert.Equal(t, []string{"5", "1", "5"}, table.Columns[2])

	require.Contains(t, table.ValueLabels, "SAT")
	assert.Equal(t, map[string]string{"1": "Low", "5": "High"}, table.ValueLabels["SAT"])
	assert.NotContains(t, table.ValueLabels, "AGE")
}

func TestReadSAVCompressed(t *testing.T) {
	f := &savFixture{}
	f.header(2, 1, 2)
	f.numericVar("AGE", "")
	f.numericVar("SCORE", "")
	f.dictEnd()

	// Bytecode block: 34 and 5 as biased codes, then sysmis and a literal.
	f.u1(134) // 34 + bias
	f.u1(105) // 5 + bias
	f.u1(255) // system missing
	f.u1(253) // literal follows
	f.u1(252) // end of data
	f.u1(0)
	f.u1(0)
	f.u1(0)
	f.f8(1.5) // the literal for code 253

	table, err := ReadSAV(f.buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"34", ""}, table.Columns[0])
	assert.Equal(t, []string{"5", "1.5"}, table.Columns[1])
}

func TestReadSAVRejectsBadMagic(t *testing.T) {
	_, err := ReadSAV([]byte("NOPE this is not a system file"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an SPSS system file")
}

func TestReadSAVTruncated(t *testing.T) {
	f := &savFixture{}
	f.header(1, 0, 5)
	f.numericVar("AGE", "")
	f.dictEnd()
	f.f8(34) // only one of five declared cases

	table, err := ReadSAV(f.buf.Bytes())
	// Running out of data at a case boundary ends the read cleanly.
	require.NoError(t, err)
	assert.Equal(t, []string{"34"}, table.Columns[0])
}
