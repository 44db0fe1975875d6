package serialization

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/scenecore/internal/core"
)

// ExportYAML writes the document of p as block-style YAML. Key order
// matches the JSON document.
func ExportYAML(p *core.Project, featureLevel int) ([]byte, error) {
	raw, err := Serialize(p, featureLevel)
	if err != nil {
		return nil, err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("converting to yaml: %w", err)
	}
	blockStyle(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// blockStyle drops the flow and quoting styles inherited from JSON. The
// encoder still quotes strings that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
