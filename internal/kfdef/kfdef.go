// Package kfdef reads and edits the KfDef deployment descriptor kfctl leaves
// in an app directory as tmp.yaml.
//
// Edits go through the YAML node tree so that saving a KfDef keeps every
// field kfctl wrote, including the ones this package does not model.
package kfdef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"kfctl-e2e/internal/api"
)

const (
	// FileName is the descriptor kfctl writes into the app directory.
	FileName = "tmp.yaml"

	PluginKindGCP             = "KfGcpPlugin"
	PluginKindExistingArrikto = "KfExistingArriktoPlugin"

	PlatformGCP             = "gcp"
	PlatformExistingArrikto = "existing_arrikto"
)

type document struct {
	APIVersion string `yaml:"apiVersion"`
	Metadata   struct {
		Name        string `yaml:"name"`
		ClusterName string `yaml:"clusterName"`
	} `yaml:"metadata"`
	Spec struct {
		Platform string `yaml:"platform"`
		Plugins  []struct {
			Kind string `yaml:"kind"`
		} `yaml:"plugins"`
	} `yaml:"spec"`
}

// KfDef is a parsed deployment descriptor.
type KfDef struct {
	path string
	root yaml.Node
	doc  document
}

// LoadFile reads <appPath>/tmp.yaml.
func LoadFile(appPath string) (*KfDef, error) {
	p := filepath.Join(appPath, FileName)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, api.NewNotFoundError("kfdef", p)
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	k, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	k.path = p
	return k, nil
}

// Parse parses a descriptor that is not backed by a file.
func Parse(data []byte) (*KfDef, error) {
	k := &KfDef{}
	if err := yaml.Unmarshal(data, &k.root); err != nil {
		return nil, err
	}
	if k.root.Kind != yaml.DocumentNode || len(k.root.Content) == 0 || k.root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("kfdef is not a mapping")
	}
	if err := k.root.Decode(&k.doc); err != nil {
		return nil, err
	}
	return k, nil
}

// Path returns the file the descriptor was loaded from.
func (k *KfDef) Path() string { return k.path }

// APIVersion returns the descriptor's apiVersion.
func (k *KfDef) APIVersion() string { return strings.TrimSpace(k.doc.APIVersion) }

// Name returns metadata.name, the app name.
func (k *KfDef) Name() string { return k.doc.Metadata.Name }

// ClusterName returns metadata.clusterName.
func (k *KfDef) ClusterName() string { return k.doc.Metadata.ClusterName }

// Platform derives the platform the descriptor deploys to. v1alpha1
// descriptors declare it in spec.platform; later versions imply it by their
// plugin kinds. Unknown plugins yield an empty platform.
func (k *KfDef) Platform() (string, error) {
	parts := strings.Split(k.APIVersion(), "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid apiVersion: %q", k.APIVersion())
	}
	switch parts[1] {
	case "v1alpha1":
		return k.doc.Spec.Platform, nil
	case "v1beta1", "v1":
		platform := ""
		for _, p := range k.doc.Spec.Plugins {
			switch p.Kind {
			case PluginKindGCP:
				platform = PlatformGCP
			case PluginKindExistingArrikto:
				platform = PlatformExistingArrikto
			}
		}
		return platform, nil
	default:
		return "", fmt.Errorf("unknown version: %s", parts[1])
	}
}

// SetClusterName sets metadata.clusterName, creating metadata if needed.
func (k *KfDef) SetClusterName(name string) {
	top := k.root.Content[0]
	meta := mappingValue(top, "metadata")
	if meta == nil || meta.Kind != yaml.MappingNode {
		meta = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setMappingValue(top, "metadata", meta)
	}
	setMappingValue(meta, "clusterName", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name})
	k.doc.Metadata.ClusterName = name
}

// Marshal encodes the descriptor.
func (k *KfDef) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&k.root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the descriptor back to the file it was loaded from.
func (k *KfDef) Save() error {
	if k.path == "" {
		return errors.New("kfdef was not loaded from a file")
	}
	data, err := k.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", k.path, err)
	}
	if err := os.WriteFile(k.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", k.path, err)
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
