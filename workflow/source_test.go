package workflow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSource = `
name: routing
nodes:
  - id: a
    kind: set
    name: x
    value: "5"
  - id: b
    kind: branch
    condition: "{{x}} > 3"
    trueNext: c
    falseNext: d
  - id: c
    kind: set
    name: r
    value: big
    next: end
  - id: d
    kind: set
    name: r
    value: small
`

func TestDocument_FromYAMLAndParse(t *testing.T) {
	doc, err := FromYAML(yamlSource)
	require.NoError(t, err)
	assert.Equal(t, "routing", doc.Name)
	require.Len(t, doc.Nodes, 4)

	wf, err := doc.Parse()
	require.NoError(t, err)
	assert.Equal(t, "a", wf.Start())
	assert.True(t, hasEdge(wf, "b", "c", LabelTrue))
	assert.True(t, hasEdge(wf, "b", "d", LabelFalse))
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc, err := FromYAML(yamlSource)
	require.NoError(t, err)

	jsonStr, err := doc.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(jsonStr)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, back.Name)
	assert.Equal(t, doc.Nodes, back.Nodes)
}

func TestDocument_YAMLRoundTrip(t *testing.T) {
	doc, err := FromYAML(yamlSource)
	require.NoError(t, err)

	yamlStr, err := doc.ToYAML()
	require.NoError(t, err)

	back, err := FromYAML(yamlStr)
	require.NoError(t, err)
	assert.Equal(t, doc.Nodes, back.Nodes)
}

func TestDocument_FileRoundTrip(t *testing.T) {
	doc, err := FromYAML(yamlSource)
	require.NoError(t, err)

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "wf.yaml")
	jsonPath := filepath.Join(dir, "wf.json")

	require.NoError(t, doc.SaveToYAMLFile(yamlPath))
	require.NoError(t, doc.SaveToJSONFile(jsonPath))

	fromYAML, err := LoadFromYAMLFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, doc.Nodes, fromYAML.Nodes)

	fromJSON, err := LoadFromJSONFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, doc.Nodes, fromJSON.Nodes)
}

func TestDocument_InvalidInput(t *testing.T) {
	_, err := FromJSON("{not json")
	assert.Error(t, err)

	_, err = FromYAML(": bad\n  yaml: [")
	assert.Error(t, err)

	_, err = LoadFromYAMLFile("/nonexistent/wf.yaml")
	assert.Error(t, err)
}

func TestDocument_SerializeThenPersist(t *testing.T) {
	wf, err := Parse([]Record{
		{"id": "a", "kind": "set", "name": "x", "value": "1"},
		{"id": "b", "kind": "set", "name": "y", "value": "2"},
	})
	require.NoError(t, err)

	doc := Serialize(wf, "persisted")
	yamlStr, err := doc.ToYAML()
	require.NoError(t, err)

	back, err := FromYAML(yamlStr)
	require.NoError(t, err)
	reparsed, err := back.Parse()
	require.NoError(t, err)
	assertIsomorphic(t, wf, reparsed)
}
