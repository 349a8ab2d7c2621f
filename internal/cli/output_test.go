package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestWriteFallsBackToJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, FormatTable, pair{Name: "a", Count: 2}))
	assert.JSONEq(t, `{"name":"a","count":2}`, buf.String())
}

func TestWriteYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, FormatYAML, pair{Name: "a", Count: 2}))
	assert.Equal(t, "name: a\ncount: 2\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.Equal(t, FormatJSON, DetectFormat(w))
}
