package inputdata

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/cohortdata/cohort/pkg/compression"
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/readstat"
)

// LoadCSV ingests a delimited text file. The first record is the header;
// header cells become both the question names (before normalization) and the
// question texts. Records may be ragged; short rows contribute empty cells.
// Files ending in .gz are transparently decompressed.
func LoadCSV(path string, cfg *config.IngestConfig, opts ...Option) (*InputData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open csv file").
			WithDetail("path", path)
	}
	defer f.Close()

	r, err := compression.NewReader(compression.Detect(path), f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open datafile stream").
			WithDetail("path", path)
	}
	defer r.Close()

	table, err := readCSVTable(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse csv file").
			WithDetail("path", path)
	}

	opts = append(opts, withFormat("csv", false))
	return New(path, table, cfg, opts...)
}

func readCSVTable(r io.Reader) (*readstat.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "csv file has no header row")
	}
	if err != nil {
		return nil, err
	}

	table := &readstat.Table{
		Names:       header,
		Labels:      append([]string(nil), header...),
		Columns:     make([][]string, len(header)),
		ValueLabels: map[string]map[string]string{},
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range table.Columns {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			table.Columns[i] = append(table.Columns[i], cell)
		}
	}
	return table, nil
}
