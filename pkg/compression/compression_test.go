package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	assert.Equal(t, Gzip, Detect("responses.csv.gz"))
	assert.Equal(t, None, Detect("responses.csv"))
	assert.Equal(t, None, Detect("panel.sav"))
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "responses.csv", Strip("responses.csv.gz"))
	assert.Equal(t, "panel.dta", Strip("panel.dta"))
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(Gzip, &buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("age,satisfaction\n34,5\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(Gzip, &buf)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "age,satisfaction\n34,5\n", string(data))
}

func TestNonePassthrough(t *testing.T) {
	r, err := NewReader(None, bytes.NewReader([]byte("plain")))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewReader(Algorithm("zstd"), bytes.NewReader(nil))
	require.Error(t, err)
	_, err = NewWriter(Algorithm("zstd"), io.Discard)
	require.Error(t, err)
}

func TestGzipRejectsGarbage(t *testing.T) {
	_, err := NewReader(Gzip, bytes.NewReader([]byte("not gzip")))
	require.Error(t, err)
}
