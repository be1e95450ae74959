package readstat

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	cerrors "github.com/cohortdata/cohort/pkg/errors"
)

// SPSS record type codes.
const (
	savRecVariable    = 2
	savRecValueLabels = 3
	savRecLabelVars   = 4
	savRecDocument    = 6
	savRecInfo        = 7
	savRecDictEnd     = 999
)

// savInfoEncoding is the info-record subtype carrying the character
// encoding name.
const savInfoEncoding = 20

// OpenSAV reads an SPSS system file from disk.
func OpenSAV(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.ErrorTypeFile, "failed to read sav file")
	}
	return ReadSAV(data)
}

// ReadSAV parses an SPSS system file ($FL2), supporting uncompressed and
// bias-compressed (bytecode) data.
func ReadSAV(data []byte) (*Table, error) {
	s := &savReader{data: data, bo: binary.LittleEndian, bias: 100}
	table, err := s.parse()
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.ErrorTypeData, "failed to parse sav file")
	}
	return table, nil
}

// savVariable is one dictionary entry that owns data (not a continuation).
type savVariable struct {
	shortName string
	label     string
	width     int // 0 = numeric, >0 = string width in bytes
	segments  int // 8-byte data elements occupied per case
	dictIndex int // 1-based index of the variable's first dictionary slot
	// valueLabels keyed the same way data cells are stringified
	valueLabels map[string]string
	column      []string
}

type savReader struct {
	data []byte
	pos  int
	bo   binary.ByteOrder

	compression int
	bias        float64
	caseSize    int // data elements per case
	caseCount   int // -1 when unknown
	utf8        bool

	vars []*savVariable

	// cmd holds pending bytecode commands during compressed reads
	cmd []byte
}

func (s *savReader) parse() (*Table, error) {
	if err := s.header(); err != nil {
		return nil, err
	}
	if err := s.dictionary(); err != nil {
		return nil, err
	}
	if err := s.readCases(); err != nil {
		return nil, err
	}

	table := &Table{
		Names:       make([]string, len(s.vars)),
		Labels:      make([]string, len(s.vars)),
		Columns:     make([][]string, len(s.vars)),
		ValueLabels: make(map[string]map[string]string),
	}
	for i, v := range s.vars {
		table.Names[i] = v.shortName
		table.Labels[i] = v.label
		table.Columns[i] = v.column
		if len(v.valueLabels) > 0 {
			table.ValueLabels[v.shortName] = v.valueLabels
		}
	}
	return table, nil
}

func (s *savReader) header() error {
	magic, err := s.take(4)
	if err != nil {
		return err
	}
	if string(magic) != "$FL2" {
		return fmt.Errorf("not an SPSS system file (magic %q)", string(magic))
	}

	if _, err := s.take(60); err != nil { // product name
		return err
	}
	layout, err := s.i4()
	if err != nil {
		return err
	}
	// layout_code is 2 (or 3) when the writer's byte order matches; a wild
	// value means the file is big-endian.
	if layout != 2 && layout != 3 {
		s.bo = binary.BigEndian
		s.pos -= 4
		if layout, err = s.i4(); err != nil {
			return err
		}
		if layout != 2 && layout != 3 {
			return fmt.Errorf("cannot determine byte order (layout code %d)", layout)
		}
	}

	if s.caseSize, err = s.i4(); err != nil {
		return err
	}
	if s.compression, err = s.i4(); err != nil {
		return err
	}
	if _, err = s.i4(); err != nil { // weight index
		return err
	}
	if s.caseCount, err = s.i4(); err != nil {
		return err
	}
	if s.bias, err = s.f8(); err != nil {
		return err
	}
	// creation date, time, file label, padding
	if _, err = s.take(9 + 8 + 64 + 3); err != nil {
		return err
	}
	return nil
}

// dictionary reads records until the dictionary terminator. Continuation
// slots of long strings are tracked so value-label variable indices and
// per-case element layout both resolve correctly.
func (s *savReader) dictionary() error {
	// dictSlots[i] is the variable owning 1-based dictionary slot i+1, or
	// nil for continuation slots.
	var dictSlots []*savVariable
	var pendingLabels map[string]string

	for {
		recType, err := s.i4()
		if err != nil {
			return err
		}

		switch recType {
		case savRecVariable:
			if err := s.variableRecord(&dictSlots); err != nil {
				return err
			}

		case savRecValueLabels:
			if pendingLabels, err = s.valueLabelRecord(); err != nil {
				return err
			}

		case savRecLabelVars:
			if err := s.labelVarsRecord(dictSlots, pendingLabels); err != nil {
				return err
			}
			pendingLabels = nil

		case savRecDocument:
			lines, err := s.i4()
			if err != nil {
				return err
			}
			if _, err := s.take(lines * 80); err != nil {
				return err
			}

		case savRecInfo:
			if err := s.infoRecord(); err != nil {
				return err
			}

		case savRecDictEnd:
			if _, err := s.i4(); err != nil { // filler
				return err
			}
			return nil

		default:
			return fmt.Errorf("unknown dictionary record type %d", recType)
		}
	}
}

func (s *savReader) variableRecord(dictSlots *[]*savVariable) error {
	varType, err := s.i4()
	if err != nil {
		return err
	}
	hasLabel, err := s.i4()
	if err != nil {
		return err
	}
	nMissing, err := s.i4()
	if err != nil {
		return err
	}
	if _, err := s.take(8); err != nil { // print and write formats
		return err
	}
	nameRaw, err := s.take(8)
	if err != nil {
		return err
	}

	var label string
	if hasLabel != 0 {
		labelLen, err := s.i4()
		if err != nil {
			return err
		}
		padded := (labelLen + 3) / 4 * 4
		raw, err := s.take(padded)
		if err != nil {
			return err
		}
		label = s.decode(raw[:labelLen])
	}
	if nMissing != 0 {
		n := nMissing
		if n < 0 {
			n = -n
		}
		if _, err := s.take(8 * n); err != nil {
			return err
		}
	}

	if varType < 0 {
		// Continuation of a long string; occupies a dictionary slot but no
		// new variable.
		*dictSlots = append(*dictSlots, nil)
		return nil
	}

	v := &savVariable{
		shortName: strings.TrimRight(s.decode(nameRaw), " "),
		label:     label,
		width:     varType,
		segments:  1,
		dictIndex: len(*dictSlots) + 1,
	}
	if varType > 0 {
		v.segments = (varType + 7) / 8
	}
	s.vars = append(s.vars, v)
	*dictSlots = append(*dictSlots, v)
	return nil
}

// valueLabelRecord reads a type-3 record; the labels apply to the variables
// listed in the type-4 record that must follow.
func (s *savReader) valueLabelRecord() (map[string]string, error) {
	count, err := s.i4()
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, count)
	for i := 0; i < count; i++ {
		valueRaw, err := s.take(8)
		if err != nil {
			return nil, err
		}
		labelLen, err := s.u1()
		if err != nil {
			return nil, err
		}
		// label plus its length byte are padded to a multiple of 8
		padded := (int(labelLen)+1+7)/8*8 - 1
		raw, err := s.take(padded)
		if err != nil {
			return nil, err
		}
		label := s.decode(raw[:labelLen])

		// The code key is stringified exactly like data cells so codebook
		// application matches.
		value := math.Float64frombits(s.bo.Uint64(valueRaw))
		labels[formatNumericCell(value)] = label
	}
	return labels, nil
}

func (s *savReader) labelVarsRecord(dictSlots []*savVariable, labels map[string]string) error {
	count, err := s.i4()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		idx, err := s.i4()
		if err != nil {
			return err
		}
		if labels == nil {
			continue
		}
		if idx < 1 || idx > len(dictSlots) || dictSlots[idx-1] == nil {
			return fmt.Errorf("value label record references invalid variable index %d", idx)
		}
		dictSlots[idx-1].valueLabels = labels
	}
	return nil
}

func (s *savReader) infoRecord() error {
	subtype, err := s.i4()
	if err != nil {
		return err
	}
	size, err := s.i4()
	if err != nil {
		return err
	}
	count, err := s.i4()
	if err != nil {
		return err
	}
	payload, err := s.take(size * count)
	if err != nil {
		return err
	}

	if subtype == savInfoEncoding {
		enc := strings.ToUpper(strings.TrimSpace(string(payload)))
		s.utf8 = enc == "UTF-8" || enc == "UTF8"
	}
	return nil
}

// readCases decodes the data section into per-variable columns.
func (s *savReader) readCases() error {
	for _, v := range s.vars {
		if s.caseCount > 0 {
			v.column = make([]string, 0, s.caseCount)
		}
	}

	for row := 0; s.caseCount < 0 || row < s.caseCount; row++ {
		done, err := s.readCase()
		if err != nil {
			return fmt.Errorf("case %d: %w", row, err)
		}
		if done {
			break
		}
	}
	return nil
}

// readCase reads one case; done is true on a clean end of data.
func (s *savReader) readCase() (bool, error) {
	for i, v := range s.vars {
		if v.width == 0 {
			f, missing, eof, err := s.element()
			if err != nil {
				return false, err
			}
			if eof {
				if i == 0 {
					return true, nil
				}
				return false, fmt.Errorf("unexpected end of data mid-case")
			}
			if missing {
				v.column = append(v.column, "")
			} else {
				v.column = append(v.column, formatNumericCell(f))
			}
			continue
		}

		// String variable: width bytes across 8-byte segments.
		raw := make([]byte, 0, v.segments*8)
		for seg := 0; seg < v.segments; seg++ {
			chunk, eof, err := s.stringElement()
			if err != nil {
				return false, err
			}
			if eof {
				if i == 0 && seg == 0 {
					return true, nil
				}
				return false, fmt.Errorf("unexpected end of data mid-case")
			}
			raw = append(raw, chunk...)
		}
		v.column = append(v.column, strings.TrimRight(s.decode(raw[:v.width]), " "))
	}
	return false, nil
}

// element yields the next numeric data element.
func (s *savReader) element() (f float64, missing, eof bool, err error) {
	if s.compression == 0 {
		if s.pos+8 > len(s.data) {
			return 0, false, true, nil
		}
		raw, err := s.take(8)
		if err != nil {
			return 0, false, false, err
		}
		f = math.Float64frombits(s.bo.Uint64(raw))
		return f, f == savSysmis(), false, nil
	}

	for {
		code, eof, err := s.nextCommand()
		if err != nil || eof {
			return 0, false, eof, err
		}
		switch {
		case code == 0: // padding
			continue
		case code == 252:
			return 0, false, true, nil
		case code == 253:
			raw, err := s.take(8)
			if err != nil {
				return 0, false, false, err
			}
			f = math.Float64frombits(s.bo.Uint64(raw))
			return f, f == savSysmis(), false, nil
		case code == 254: // all-spaces string chunk as numeric slot
			return 0, true, false, nil
		case code == 255:
			return 0, true, false, nil
		default:
			return float64(code) - s.bias, false, false, nil
		}
	}
}

// stringElement yields the next 8 bytes of string data.
func (s *savReader) stringElement() ([]byte, bool, error) {
	if s.compression == 0 {
		if s.pos+8 > len(s.data) {
			return nil, true, nil
		}
		raw, err := s.take(8)
		return raw, false, err
	}

	for {
		code, eof, err := s.nextCommand()
		if err != nil || eof {
			return nil, eof, err
		}
		switch code {
		case 0:
			continue
		case 252:
			return nil, true, nil
		case 253:
			raw, err := s.take(8)
			return raw, false, err
		case 254:
			return []byte("        "), false, nil
		case 255:
			return []byte("        "), false, nil
		default:
			return nil, false, fmt.Errorf("unexpected bytecode %d in string data", code)
		}
	}
}

// nextCommand returns the next bytecode, refilling the 8-byte command block
// as needed.
func (s *savReader) nextCommand() (byte, bool, error) {
	if len(s.cmd) == 0 {
		if s.pos >= len(s.data) {
			return 0, true, nil
		}
		raw, err := s.take(8)
		if err != nil {
			return 0, false, err
		}
		s.cmd = raw
	}
	code := s.cmd[0]
	s.cmd = s.cmd[1:]
	return code, false, nil
}

func savSysmis() float64 {
	return -math.MaxFloat64
}

func (s *savReader) decode(b []byte) string {
	if s.utf8 {
		return string(b)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}

// cursor helpers

func (s *savReader) take(n int) ([]byte, error) {
	if s.pos+n > len(s.data) {
		return nil, fmt.Errorf("truncated file at offset %d", s.pos)
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

func (s *savReader) u1() (uint8, error) {
	b, err := s.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *savReader) i4() (int, error) {
	b, err := s.take(4)
	if err != nil {
		return 0, err
	}
	return int(int32(s.bo.Uint32(b))), nil
}

func (s *savReader) f8() (float64, error) {
	b, err := s.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(s.bo.Uint64(b)), nil
}
