package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/convert"
	"github.com/cohortdata/cohort/pkg/inference"
	"github.com/cohortdata/cohort/pkg/testutil"
)

func TestRunCSVEndToEnd(t *testing.T) {
	path := testutil.WriteFile(t, "responses.csv", "age,satisfaction\n34,5\n41,4\n29,5\n")

	p := New(config.NewIngestConfig(path), testutil.Logger(t))
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Empty(t, result.QuestionFailures)
	require.Empty(t, result.TraitFailures)
	require.Equal(t, 2, result.Survey.Len())
	require.Len(t, result.Agents, 3)

	q, ok := result.Survey.Get("satisfaction")
	require.True(t, ok)
	assert.Equal(t, inference.TypeMultipleChoice, q.Type)
	assert.Equal(t, []string{"5", "4"}, q.Options)

	v, ok := result.Agents[0].Answer("age")
	require.True(t, ok)
	assert.Equal(t, convert.KindInt, v.Kind)
	assert.Equal(t, int64(34), v.Int)
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	cfg := config.NewIngestConfig("responses.xlsx")
	p := New(cfg, zap.NewNop())
	_, err := p.Run(context.Background())
	require.Error(t, err)

	cfg = config.NewIngestConfig("data.bin")
	cfg.Format = "parquet"
	p = New(cfg, zap.NewNop())
	_, err = p.Run(context.Background())
	require.Error(t, err)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		path     string
		override string
		want     string
		wantErr  bool
	}{
		{path: "a/b/responses.csv", want: "csv"},
		{path: "responses.csv.gz", want: "csv"},
		{path: "panel.sav", want: "sav"},
		{path: "panel.dta", want: "dta"},
		{path: "panel.dat", override: "sav", want: "sav"},
		{path: "panel.dat", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cfg := config.NewIngestConfig(tt.path)
			cfg.Format = tt.override
			p := New(cfg, zap.NewNop())

			got, err := p.resolveFormat(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	cfg := config.NewIngestConfig(filepath.Join(t.TempDir(), "absent.csv"))
	p := New(cfg, zap.NewNop())
	_, err := p.Run(context.Background())
	require.Error(t, err)
}
