package inputdata

import (
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/errors"
	json "github.com/cohortdata/cohort/pkg/json"
	"github.com/cohortdata/cohort/pkg/inference"
	"github.com/cohortdata/cohort/pkg/readstat"
)

// Snapshot is the serialized form of an InputData. Raw responses are stored
// undecoded together with the codebook, so a restored aggregate decodes and
// classifies exactly like the original load did.
type Snapshot struct {
	DatafileName   string                       `json:"datafile_name"`
	Config         *config.IngestConfig         `json:"config"`
	RawData        [][]string                   `json:"raw_data"`
	QuestionNames  []string                     `json:"question_names"`
	QuestionTexts  []string                     `json:"question_texts"`
	Binary         bool                         `json:"binary"`
	AnswerCodebook map[string]map[string]string `json:"answer_codebook,omitempty"`
	QuestionTypes  []string                     `json:"question_types"`
}

// ToSnapshot captures the aggregate's current state, including any type
// overrides applied since loading.
func (d *InputData) ToSnapshot() *Snapshot {
	snap := &Snapshot{
		DatafileName:   d.datafileName,
		Config:         d.cfg,
		Binary:         d.binary,
		AnswerCodebook: make(map[string]map[string]string, len(d.codebook)),
	}
	for _, rec := range d.records {
		snap.RawData = append(snap.RawData, d.responses[rec.Name])
		snap.QuestionNames = append(snap.QuestionNames, rec.Name)
		snap.QuestionTexts = append(snap.QuestionTexts, rec.Text)
		snap.QuestionTypes = append(snap.QuestionTypes, string(rec.Type))
		if labels, ok := d.codebook[rec.Name]; ok {
			snap.AnswerCodebook[rec.Name] = labels
		}
	}
	return snap
}

// FromSnapshot reconstructs an InputData. Names in a snapshot are already
// normalized identifiers; they are validated again but never repaired, so a
// round trip preserves names exactly.
func FromSnapshot(snap *Snapshot, opts ...Option) (*InputData, error) {
	if snap.Config == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "snapshot has no config")
	}
	if len(snap.QuestionTypes) != 0 && len(snap.QuestionTypes) != len(snap.QuestionNames) {
		return nil, errors.New(errors.ErrorTypeValidation, "question type count does not match question name count").
			WithDetail("types", len(snap.QuestionTypes)).
			WithDetail("names", len(snap.QuestionNames))
	}

	table := &readstat.Table{
		Names:       snap.QuestionNames,
		Labels:      snap.QuestionTexts,
		Columns:     snap.RawData,
		ValueLabels: snap.AnswerCodebook,
	}
	opts = append(opts, withFormat("snapshot", snap.Binary))
	d, err := New(snap.DatafileName, table, snap.Config, opts...)
	if err != nil {
		return nil, err
	}

	// restore overridden types
	for i, t := range snap.QuestionTypes {
		if qt := inference.QuestionType(t); qt.Valid() {
			d.records[i].Type = qt
		}
	}
	return d, nil
}

// MarshalJSON serializes the aggregate via its snapshot.
func (d *InputData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToSnapshot())
}

// FromJSON deserializes a snapshot produced by MarshalJSON.
func FromJSON(data []byte, opts ...Option) (*InputData, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode input data snapshot")
	}
	return FromSnapshot(&snap, opts...)
}
