package main

import (
	"bytes"
	"encoding/json"
	"metadata-negotiator/internal/accepttypes"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOptionsRequest(t *testing.T) {
	opts := fetchOptions{acceptType: "JSONLD", metricLabel: "m", token: "t0k", scheme: "basic", extraAccept: "application/x-a"}

	req, err := opts.request(" example.org/x")
	require.NoError(t, err)
	assert.Equal(t, accepttypes.JSONLD, req.AcceptType)
	assert.Equal(t, "https://example.org/x", req.URL)
	assert.True(t, req.IgnoreHTML)
	assert.Equal(t, "Basic t0k", req.Auth.Header())
	assert.Equal(t, "application/x-a,"+accepttypes.Value(accepttypes.JSONLD), req.AcceptValue())

	_, err = fetchOptions{acceptType: "yaml"}.request("https://example.org/x")
	assert.ErrorIs(t, err, errUnknownAcceptType)
}

func TestPrintResult(t *testing.T) {
	req := config.NewRequest("https://example.org/x", accepttypes.HTML, "m")
	res := &data.NegotiationResult{RequestURL: "https://example.org/x", Status: 200, Format: data.FormatHTML, Body: []byte("<p>&</p>")}

	var out bytes.Buffer
	require.NoError(t, printResult(&out, req, res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "<p>&</p>", decoded["content"])
	assert.Equal(t, "html", decoded["format"])
}

func TestAcceptTypesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"accept-types"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "datacite_json")
	assert.Contains(t, out.String(), accepttypes.Value(accepttypes.RDF))
}
