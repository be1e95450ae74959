package readstat

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	cerrors "github.com/cohortdata/cohort/pkg/errors"
)

// Stata variable type codes. Values 1..2045 are fixed-width strings.
const (
	dtaTypeStrL   = 32768
	dtaTypeDouble = 65526
	dtaTypeFloat  = 65527
	dtaTypeLong   = 65528
	dtaTypeInt    = 65529
	dtaTypeByte   = 65530
)

// Missing-value thresholds. Stata encodes "." and the extended missing
// values .a..z above these bounds.
const (
	dtaMissingByte   = 100
	dtaMissingInt    = 32740
	dtaMissingLong   = 2147483620
	dtaMissingFloat  = 1.701e38
	dtaMissingDouble = 8.988e307
)

// OpenDTA reads a Stata .dta file from disk.
func OpenDTA(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.ErrorTypeFile, "failed to read dta file")
	}
	return ReadDTA(data)
}

// ReadDTA parses a Stata dataset in the modern tagged format (releases 117
// and 118). Older releases are rejected.
func ReadDTA(data []byte) (*Table, error) {
	d := &dtaReader{data: data, bo: binary.LittleEndian}
	table, err := d.parse()
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.ErrorTypeData, "failed to parse dta file")
	}
	return table, nil
}

type dtaReader struct {
	data    []byte
	pos     int
	bo      binary.ByteOrder
	release int

	// section offsets from the <map> record
	offsets []uint64

	varCount int
	rowCount int
	types    []uint16
	names    []string
	labels   []string
	// labelNames[i] is the value-label set attached to variable i
	labelNames []string
	// strls maps a (v,o) pair to its long-string payload
	strls map[[2]uint64]string
}

func (d *dtaReader) parse() (*Table, error) {
	if err := d.header(); err != nil {
		return nil, err
	}
	if err := d.sectionMap(); err != nil {
		return nil, err
	}
	if err := d.variableTypes(); err != nil {
		return nil, err
	}
	if err := d.varlist(); err != nil {
		return nil, err
	}
	if err := d.valueLabelNames(); err != nil {
		return nil, err
	}
	if err := d.variableLabels(); err != nil {
		return nil, err
	}
	if err := d.readStrLs(); err != nil {
		return nil, err
	}

	columns, err := d.readData()
	if err != nil {
		return nil, err
	}

	valueLabels, err := d.readValueLabels()
	if err != nil {
		return nil, err
	}

	table := &Table{
		Names:       d.names,
		Labels:      d.labels,
		Columns:     columns,
		ValueLabels: make(map[string]map[string]string),
	}
	for i, labelName := range d.labelNames {
		if labelName == "" {
			continue
		}
		if labels, ok := valueLabels[labelName]; ok {
			table.ValueLabels[d.names[i]] = labels
		}
	}
	return table, nil
}

func (d *dtaReader) header() error {
	for _, tag := range []string{"<stata_dta>", "<header>", "<release>"} {
		if err := d.expect(tag); err != nil {
			return err
		}
	}

	releaseBytes, err := d.take(3)
	if err != nil {
		return err
	}
	d.release, err = strconv.Atoi(string(releaseBytes))
	if err != nil || (d.release != 117 && d.release != 118) {
		return fmt.Errorf("unsupported dta release %q", string(releaseBytes))
	}

	if err := d.expect("</release>"); err != nil {
		return err
	}
	if err := d.expect("<byteorder>"); err != nil {
		return err
	}
	order, err := d.take(3)
	if err != nil {
		return err
	}
	switch string(order) {
	case "LSF":
		d.bo = binary.LittleEndian
	case "MSF":
		d.bo = binary.BigEndian
	default:
		return fmt.Errorf("unknown byte order %q", string(order))
	}
	if err := d.expect("</byteorder>"); err != nil {
		return err
	}

	if err := d.expect("<K>"); err != nil {
		return err
	}
	k, err := d.u2()
	if err != nil {
		return err
	}
	d.varCount = int(k)
	if err := d.expect("</K>"); err != nil {
		return err
	}

	if err := d.expect("<N>"); err != nil {
		return err
	}
	if d.release >= 118 {
		n, err := d.u8()
		if err != nil {
			return err
		}
		d.rowCount = int(n)
	} else {
		n, err := d.u4()
		if err != nil {
			return err
		}
		d.rowCount = int(n)
	}
	if err := d.expect("</N>"); err != nil {
		return err
	}

	// dataset label
	if err := d.expect("<label>"); err != nil {
		return err
	}
	var labelLen int
	if d.release >= 118 {
		n, err := d.u2()
		if err != nil {
			return err
		}
		labelLen = int(n)
	} else {
		n, err := d.u1()
		if err != nil {
			return err
		}
		labelLen = int(n)
	}
	if _, err := d.take(labelLen); err != nil {
		return err
	}
	if err := d.expect("</label>"); err != nil {
		return err
	}

	if err := d.expect("<timestamp>"); err != nil {
		return err
	}
	tsLen, err := d.u1()
	if err != nil {
		return err
	}
	if _, err := d.take(int(tsLen)); err != nil {
		return err
	}
	if err := d.expect("</timestamp>"); err != nil {
		return err
	}
	return d.expect("</header>")
}

func (d *dtaReader) sectionMap() error {
	if err := d.expect("<map>"); err != nil {
		return err
	}
	d.offsets = make([]uint64, 14)
	for i := range d.offsets {
		off, err := d.u8()
		if err != nil {
			return err
		}
		d.offsets[i] = off
	}
	return d.expect("</map>")
}

func (d *dtaReader) variableTypes() error {
	d.pos = int(d.offsets[2])
	if err := d.expect("<variable_types>"); err != nil {
		return err
	}
	d.types = make([]uint16, d.varCount)
	for i := range d.types {
		t, err := d.u2()
		if err != nil {
			return err
		}
		d.types[i] = t
	}
	return nil
}

// nameWidth returns the fixed byte width of a name field (null-terminated).
func (d *dtaReader) nameWidth() int {
	if d.release >= 118 {
		return 129
	}
	return 33
}

func (d *dtaReader) varLabelWidth() int {
	if d.release >= 118 {
		return 321
	}
	return 81
}

func (d *dtaReader) varlist() error {
	d.pos = int(d.offsets[3])
	if err := d.expect("<varlist>"); err != nil {
		return err
	}
	d.names = make([]string, d.varCount)
	for i := range d.names {
		raw, err := d.take(d.nameWidth())
		if err != nil {
			return err
		}
		d.names[i] = d.decode(trimNul(raw))
	}
	return nil
}

func (d *dtaReader) valueLabelNames() error {
	d.pos = int(d.offsets[6])
	if err := d.expect("<value_label_names>"); err != nil {
		return err
	}
	d.labelNames = make([]string, d.varCount)
	for i := range d.labelNames {
		raw, err := d.take(d.nameWidth())
		if err != nil {
			return err
		}
		d.labelNames[i] = d.decode(trimNul(raw))
	}
	return nil
}

func (d *dtaReader) variableLabels() error {
	d.pos = int(d.offsets[7])
	if err := d.expect("<variable_labels>"); err != nil {
		return err
	}
	d.labels = make([]string, d.varCount)
	for i := range d.labels {
		raw, err := d.take(d.varLabelWidth())
		if err != nil {
			return err
		}
		d.labels[i] = d.decode(trimNul(raw))
	}
	return nil
}

// readStrLs loads the GSO long-string blocks so strL cells can be resolved.
func (d *dtaReader) readStrLs() error {
	d.strls = make(map[[2]uint64]string)
	d.pos = int(d.offsets[10])
	if err := d.expect("<strls>"); err != nil {
		return err
	}
	for {
		if d.peek("</strls>") {
			return nil
		}
		if err := d.expect("GSO"); err != nil {
			return err
		}
		v, err := d.u4()
		if err != nil {
			return err
		}
		var o uint64
		if d.release >= 118 {
			o, err = d.u8()
		} else {
			var o32 uint32
			o32, err = d.u4()
			o = uint64(o32)
		}
		if err != nil {
			return err
		}
		t, err := d.u1()
		if err != nil {
			return err
		}
		length, err := d.u4()
		if err != nil {
			return err
		}
		payload, err := d.take(int(length))
		if err != nil {
			return err
		}
		// t=130 is null-terminated ASCII/UTF-8, t=129 is raw binary
		if t == 130 {
			payload = trimNul(payload)
		}
		d.strls[[2]uint64{uint64(v), o}] = d.decode(payload)
	}
}

func (d *dtaReader) readData() ([][]string, error) {
	d.pos = int(d.offsets[9])
	if err := d.expect("<data>"); err != nil {
		return nil, err
	}

	columns := make([][]string, d.varCount)
	for i := range columns {
		columns[i] = make([]string, d.rowCount)
	}

	for row := 0; row < d.rowCount; row++ {
		for col := 0; col < d.varCount; col++ {
			cell, err := d.readCell(d.types[col])
			if err != nil {
				return nil, fmt.Errorf("row %d, variable %q: %w", row, d.names[col], err)
			}
			columns[col][row] = cell
		}
	}
	return columns, nil
}

func (d *dtaReader) readCell(varType uint16) (string, error) {
	switch {
	case varType >= 1 && varType <= 2045:
		raw, err := d.take(int(varType))
		if err != nil {
			return "", err
		}
		return d.decode(trimNul(raw)), nil

	case varType == dtaTypeStrL:
		var v, o uint64
		if d.release >= 118 {
			v16, err := d.u2()
			if err != nil {
				return "", err
			}
			raw, err := d.take(6)
			if err != nil {
				return "", err
			}
			v = uint64(v16)
			o = uint48(raw, d.bo)
		} else {
			v32, err := d.u4()
			if err != nil {
				return "", err
			}
			o32, err := d.u4()
			if err != nil {
				return "", err
			}
			v, o = uint64(v32), uint64(o32)
		}
		return d.strls[[2]uint64{v, o}], nil

	case varType == dtaTypeDouble:
		bits, err := d.u8()
		if err != nil {
			return "", err
		}
		f := math.Float64frombits(bits)
		if f > dtaMissingDouble {
			return "", nil
		}
		return formatNumericCell(f), nil

	case varType == dtaTypeFloat:
		bits, err := d.u4()
		if err != nil {
			return "", err
		}
		f := float64(math.Float32frombits(bits))
		if f > dtaMissingFloat {
			return "", nil
		}
		return formatNumericCell(f), nil

	case varType == dtaTypeLong:
		bits, err := d.u4()
		if err != nil {
			return "", err
		}
		v := int32(bits)
		if v > dtaMissingLong {
			return "", nil
		}
		return strconv.FormatInt(int64(v), 10), nil

	case varType == dtaTypeInt:
		bits, err := d.u2()
		if err != nil {
			return "", err
		}
		v := int16(bits)
		if v > dtaMissingInt {
			return "", nil
		}
		return strconv.FormatInt(int64(v), 10), nil

	case varType == dtaTypeByte:
		b, err := d.u1()
		if err != nil {
			return "", err
		}
		v := int8(b)
		if v > dtaMissingByte {
			return "", nil
		}
		return strconv.FormatInt(int64(v), 10), nil

	default:
		return "", fmt.Errorf("unknown variable type %d", varType)
	}
}

// readValueLabels parses the <value_labels> section into label-set name →
// code → label.
func (d *dtaReader) readValueLabels() (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	d.pos = int(d.offsets[11])
	if err := d.expect("<value_labels>"); err != nil {
		return nil, err
	}

	for {
		if d.peek("</value_labels>") {
			return out, nil
		}
		if err := d.expect("<lbl>"); err != nil {
			return nil, err
		}
		if _, err := d.u4(); err != nil { // table length, redundant
			return nil, err
		}
		nameRaw, err := d.take(d.nameWidth())
		if err != nil {
			return nil, err
		}
		if _, err := d.take(3); err != nil { // padding
			return nil, err
		}
		setName := d.decode(trimNul(nameRaw))

		n, err := d.u4()
		if err != nil {
			return nil, err
		}
		txtLen, err := d.u4()
		if err != nil {
			return nil, err
		}
		offs := make([]uint32, n)
		for i := range offs {
			if offs[i], err = d.u4(); err != nil {
				return nil, err
			}
		}
		vals := make([]int32, n)
		for i := range vals {
			bits, err := d.u4()
			if err != nil {
				return nil, err
			}
			vals[i] = int32(bits)
		}
		txt, err := d.take(int(txtLen))
		if err != nil {
			return nil, err
		}

		labels := make(map[string]string, n)
		for i := range vals {
			labels[strconv.FormatInt(int64(vals[i]), 10)] = d.decode(trimNul(txt[offs[i]:]))
		}
		out[setName] = labels

		if err := d.expect("</lbl>"); err != nil {
			return nil, err
		}
	}
}

// decode converts file bytes to a UTF-8 string. Release 118 is UTF-8
// already; release 117 files are commonly windows-1252.
func (d *dtaReader) decode(b []byte) string {
	if d.release >= 118 {
		return string(b)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}

// cursor helpers

func (d *dtaReader) take(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, fmt.Errorf("truncated file at offset %d", d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *dtaReader) expect(tag string) error {
	b, err := d.take(len(tag))
	if err != nil {
		return err
	}
	if string(b) != tag {
		return fmt.Errorf("expected %q at offset %d, found %q", tag, d.pos-len(tag), string(b))
	}
	return nil
}

func (d *dtaReader) peek(tag string) bool {
	if d.pos+len(tag) > len(d.data) {
		return false
	}
	return string(d.data[d.pos:d.pos+len(tag)]) == tag
}

func (d *dtaReader) u1() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *dtaReader) u2() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return d.bo.Uint16(b), nil
}

func (d *dtaReader) u4() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return d.bo.Uint32(b), nil
}

func (d *dtaReader) u8() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return d.bo.Uint64(b), nil
}

func uint48(b []byte, bo binary.ByteOrder) uint64 {
	padded := make([]byte, 8)
	if bo == binary.BigEndian {
		copy(padded[2:], b)
	} else {
		copy(padded, b)
	}
	return bo.Uint64(padded)
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// formatNumericCell renders a float the way pkg/convert re-stringifies:
// integral values as integers.
func formatNumericCell(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
