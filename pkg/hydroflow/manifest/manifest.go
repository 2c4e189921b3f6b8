// Package manifest persists stage manifests and the last-run record.
//
// A manifest maps a symbolic output name (flow_acc_path, vector_streams,
// fault_data, ...) to a path or scalar. Manifests only grow: Save merges the
// in-memory entries over whatever is already on disk, so a later stage can
// never drop a key written by an earlier one.
package manifest

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// Manifest file names.
const (
	HydroFile     = "hydro_paths.yml"
	WatershedFile = "watershed_paths.yml"
	BQARTFile     = "bqart_paths.yml"
)

// Hydrology manifest keys.
const (
	KeyFillPath      = "fill_path"
	KeyFlowPath      = "flow_path"
	KeyFlowAccPath   = "flow_acc_path"
	KeyStreamNetPath = "stream_net_path"
	KeyNullPath      = "null_path"
	KeyStreamOrder   = "s_ord_path"
	KeyVectorStreams = "vector_streams"
	KeyUpliftRate    = "uplift_rate"
)

// Fault stage keys, added to the hydrology manifest.
const (
	KeyFaultData       = "fault_data"
	KeyFaultMetaData   = "fault_meta_data"
	KeyFaultPourPoints = "fault_pour_points"
)

// Watershed manifest keys.
const (
	KeyPourPoints = "pour_points"
	KeyWatersheds = "watersheds"
)

// BQART manifest keys.
const (
	KeyScenario   = "scenario"
	KeyTempClip   = "temp_clip"
	KeyPrecipClip = "precip_clip"
	KeyTempData   = "temp_data"
	KeyPrecipData = "precip_data"
	KeyElevData   = "elev_data"
	KeyQsData     = "qs_data"
)

// HydroKeys are the keys every completed hydrology stage leaves behind.
var HydroKeys = []string{
	KeyFillPath, KeyFlowPath, KeyFlowAccPath, KeyStreamNetPath,
	KeyNullPath, KeyStreamOrder, KeyVectorStreams, KeyUpliftRate,
}

// WatershedKeys are the keys every completed watershed stage leaves behind.
var WatershedKeys = []string{KeyPourPoints, KeyWatersheds}

// Manifest is one manifest file and its entries.
type Manifest struct {
	file    string
	entries map[string]string
}

// New returns an empty manifest bound to file. Nothing is written until Save.
func New(file string) *Manifest {
	return &Manifest{file: file, entries: make(map[string]string)}
}

// Load reads a manifest. A missing file is an IOError wrapping os.ErrNotExist.
func Load(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &errors.IOError{Op: "read manifest", Path: file, Err: err}
	}
	entries, err := decode(file, data)
	if err != nil {
		return nil, err
	}
	return &Manifest{file: file, entries: entries}, nil
}

// Open loads file if it exists and otherwise returns an empty manifest.
func Open(file string) (*Manifest, error) {
	m, err := Load(file)
	if stderrors.Is(err, os.ErrNotExist) {
		return New(file), nil
	}
	return m, err
}

func decode(file string, data []byte) (map[string]string, error) {
	var nodes map[string]yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, &errors.DataError{Dataset: file, Message: "parse manifest: " + err.Error()}
	}
	entries := make(map[string]string, len(nodes))
	for k, n := range nodes {
		if n.Kind != yaml.ScalarNode {
			return nil, &errors.DataError{Dataset: file, Field: k, Message: "value is not a scalar"}
		}
		if n.Tag == "!!null" {
			entries[k] = ""
			continue
		}
		entries[k] = n.Value
	}
	return entries, nil
}

// File returns the manifest's file path.
func (m *Manifest) File() string { return m.file }

// Dir returns the directory holding the manifest.
func (m *Manifest) Dir() string { return filepath.Dir(m.file) }

// Get returns the raw value for key.
func (m *Manifest) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set stores a value. Existing keys are overwritten, never removed.
func (m *Manifest) Set(key, value string) {
	m.entries[key] = value
}

// SetFloat stores a float in its shortest exact decimal form.
func (m *Manifest) SetFloat(key string, v float64) {
	m.entries[key] = strconv.FormatFloat(v, 'g', -1, 64)
}

// Merge copies all entries of other into m.
func (m *Manifest) Merge(other map[string]string) {
	for k, v := range other {
		m.entries[k] = v
	}
}

// Keys returns the keys in sorted order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the entries.
func (m *Manifest) Map() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Require returns a MissingManifestError for the first key that is absent
// or empty.
func (m *Manifest) Require(keys ...string) error {
	for _, k := range keys {
		if strings.TrimSpace(m.entries[k]) == "" {
			return &errors.MissingManifestError{Manifest: m.file, Key: k}
		}
	}
	return nil
}

// Path returns the non-empty value stored under key.
func (m *Manifest) Path(key string) (string, error) {
	if err := m.Require(key); err != nil {
		return "", err
	}
	return m.entries[key], nil
}

// Float parses the value stored under key.
func (m *Manifest) Float(key string) (float64, error) {
	s, err := m.Path(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &errors.DataError{Dataset: m.file, Field: key, Message: fmt.Sprintf("not a number: %q", s)}
	}
	return f, nil
}

// Save merges the entries over the file's current content and writes the
// result durably. On return the manifest holds the merged entries.
func (m *Manifest) Save() error {
	if data, err := os.ReadFile(m.file); err == nil {
		onDisk, err := decode(m.file, data)
		if err != nil {
			return err
		}
		for k, v := range m.entries {
			onDisk[k] = v
		}
		m.entries = onDisk
	} else if !stderrors.Is(err, os.ErrNotExist) {
		return &errors.IOError{Op: "read manifest", Path: m.file, Err: err}
	}

	data, err := yaml.Marshal(m.entries)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return WriteFile(m.file, data)
}
