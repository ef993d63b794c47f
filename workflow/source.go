package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the serializable source form of a workflow: a name plus the
// ordered flat record list consumed by Parse.
type Document struct {
	Name  string   `json:"name" yaml:"name"`
	Nodes []Record `json:"nodes" yaml:"nodes"`
}

// Parse builds the workflow graph described by the document.
func (d *Document) Parse() (*Workflow, error) {
	return Parse(d.Nodes)
}

// ToJSON converts the document to an indented JSON string.
func (d *Document) ToJSON() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML converts the document to a YAML string.
func (d *Document) ToYAML() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal document to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON creates a Document from a JSON string.
func FromJSON(jsonStr string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document from JSON: %w", err)
	}
	return &doc, nil
}

// FromYAML creates a Document from a YAML string.
func FromYAML(yamlStr string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document from YAML: %w", err)
	}
	return &doc, nil
}

// LoadFromYAMLFile loads a Document from a YAML file.
func LoadFromYAMLFile(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return FromYAML(string(data))
}

// LoadFromJSONFile loads a Document from a JSON file.
func LoadFromJSONFile(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return FromJSON(string(data))
}

// SaveToYAMLFile saves the document to a YAML file.
func (d *Document) SaveToYAMLFile(filename string) error {
	yamlStr, err := d.ToYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(yamlStr), 0644); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}
	return nil
}

// SaveToJSONFile saves the document to a JSON file.
func (d *Document) SaveToJSONFile(filename string) error {
	jsonStr, err := d.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(jsonStr), 0644); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}
	return nil
}
