// manifest.go reads and writes compose manifests as generic nested mappings.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for manifests that contain no document.
var ErrEmpty = errors.New("manifest is empty")

// Manifest is a parsed compose document.
type Manifest struct {
	Path string
	// Data is the whole document. Nested mappings decode as map[string]any.
	Data map[string]any
	// Services lists service names in document order.
	Services []string
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes raw YAML into a Manifest.
func Parse(raw []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, ErrEmpty
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, ErrEmpty
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping, got %s", kindName(root.Kind))
	}
	data := map[string]any{}
	if err := root.Decode(&data); err != nil {
		return nil, err
	}
	normalize(data)
	return &Manifest{Data: data, Services: mappingKeys(lookup(root, "services"))}, nil
}

// normalize rewrites nested mappings in place so every one is a
// map[string]any. yaml.v3 decodes a mapping with any non-string key, such as
// a service named 2048, as map[any]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(node *yaml.Node) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return []string{}
	}
	keys := make([]string, 0, len(node.Content)/2)
	seen := map[string]struct{}{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// Marshal encodes data as YAML with two-space indentation.
func Marshal(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTemp writes data next to manifestPath so relative paths inside the
// manifest keep resolving. The file is private to the user because it can carry
// secret values. Callers remove it with RemoveTemp.
func WriteTemp(manifestPath string, data map[string]any) (string, error) {
	raw, err := Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	dir := filepath.Dir(manifestPath)
	f, err := os.CreateTemp(dir, "."+filepath.Base(manifestPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp manifest: %w", err)
	}
	name := f.Name()
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("chmod temp manifest: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp manifest: %w", err)
	}
	return name, nil
}

// RemoveTemp deletes a temp manifest, ignoring a file that is already gone.
func RemoveTemp(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
