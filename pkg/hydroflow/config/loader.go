package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
//
// A file that cannot be read is an IOError; anything wrong with its content
// is a ConfigError naming the offending key.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.IOError{Op: "read config", Path: path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, &errors.ConfigError{Message: fmt.Sprintf("unsupported config file extension: %q", ext)}
	}
}

// FromYAML parses and validates YAML configuration.
func FromYAML(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, &errors.ConfigError{Message: "empty file"}
		}
		return nil, &errors.ConfigError{Message: "parse yaml: " + err.Error()}
	}
	return finish(&c)
}

// FromJSON parses and validates JSON configuration.
func FromJSON(data []byte) (*Config, error) {
	var c Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, &errors.ConfigError{Message: "empty file"}
		}
		return nil, &errors.ConfigError{Message: "parse json: " + err.Error()}
	}
	return finish(&c)
}

func finish(c *Config) (*Config, error) {
	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks struct tags and cross-field rules. The first problem is
// returned as a ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &errors.ConfigError{Key: fieldKey(fe.Namespace()), Message: describe(fe)}
		}
		return &errors.ConfigError{Message: err.Error()}
	}

	seen := make(map[string]bool, len(c.Climates))
	for i, cl := range c.Climates {
		if seen[cl.Name] {
			return &errors.ConfigError{
				Key:     fmt.Sprintf("climates[%d].name", i),
				Message: fmt.Sprintf("duplicate scenario %q", cl.Name),
			}
		}
		seen[cl.Name] = true
	}

	if c.HasFaults() && c.Faults.SearchRadius <= 0 {
		return &errors.ConfigError{Key: "faults.search_radius", Message: "must be positive when fault_path is set"}
	}
	return nil
}

// fieldKey turns "Config.faults.search_radius" into "faults.search_radius".
func fieldKey(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "excludesall":
		return "must not contain path separators"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
