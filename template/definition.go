package template

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/envquery/query"
)

// File is the root of a template file. One file may hold many queries.
type File struct {
	Queries []QueryDef `toml:"query" yaml:"queries"`
}

// QueryDef describes one query template.
type QueryDef struct {
	Name string `toml:"name" yaml:"name"`

	// RequiredParams lists params every request must supply.
	RequiredParams []string `toml:"required_params" yaml:"required_params"`

	// Options are tried in order until one yields a result.
	Options []OptionDef `toml:"option" yaml:"options"`
}

// OptionDef is one generator plus its ordered tests.
type OptionDef struct {
	Generator GeneratorDef `toml:"generator" yaml:"generator"`
	Tests     []TestDef    `toml:"test" yaml:"tests"`
}

// GeneratorDef configures a generator. Which fields apply depends on Type.
type GeneratorDef struct {
	Type string `toml:"type" yaml:"type"`

	// SimpleGrid and ActorsOfClass
	Radius Float  `toml:"radius" yaml:"radius"`
	Around string `toml:"around" yaml:"around"`

	// SimpleGrid
	Spacing Float `toml:"spacing" yaml:"spacing"`

	// ActorsOfClass
	Class string `toml:"class" yaml:"class"`

	// ContextPoints
	Context string `toml:"context" yaml:"context"`
}

// TestDef configures a test. The shared settings map onto query.TestBase;
// unset fields keep the test's defaults.
type TestDef struct {
	Type    string `toml:"type" yaml:"type"`
	Name    string `toml:"name" yaml:"name"`
	Purpose string `toml:"purpose" yaml:"purpose"`

	FilterOp string `toml:"filter_op" yaml:"filter_op"`
	ScoreOp  string `toml:"score_op" yaml:"score_op"`

	Filter    string `toml:"filter" yaml:"filter"`
	FilterMin Float  `toml:"filter_min" yaml:"filter_min"`
	FilterMax Float  `toml:"filter_max" yaml:"filter_max"`
	BoolMatch *bool  `toml:"bool_match" yaml:"bool_match"`

	Equation string `toml:"equation" yaml:"equation"`
	Weight   Float  `toml:"weight" yaml:"weight"`

	ClampMin      string `toml:"clamp_min" yaml:"clamp_min"`
	ClampMinValue Float  `toml:"clamp_min_value" yaml:"clamp_min_value"`
	ClampMax      string `toml:"clamp_max" yaml:"clamp_max"`
	ClampMaxValue Float  `toml:"clamp_max_value" yaml:"clamp_max_value"`

	// Distance
	Context string `toml:"context" yaml:"context"`
	Mode    string `toml:"mode" yaml:"mode"`

	// Dot
	LineA    LineDef `toml:"line_a" yaml:"line_a"`
	LineB    LineDef `toml:"line_b" yaml:"line_b"`
	Absolute bool    `toml:"absolute" yaml:"absolute"`

	// Constant
	Value Float `toml:"value" yaml:"value"`
}

// LineDef configures one side of a Dot test.
type LineDef struct {
	Mode string `toml:"mode" yaml:"mode"`
	From string `toml:"from" yaml:"from"`
	To   string `toml:"to" yaml:"to"`
}

// Float is a float setting written either as a number or as a param
// reference "Name" or "Name=default".
type Float struct {
	Value float32
	Param string
	set   bool
}

// IsSet reports whether the setting appeared in the file.
func (f Float) IsSet() bool { return f.set }

// FloatValue converts f to a query.FloatValue.
func (f Float) FloatValue() query.FloatValue {
	return query.FloatValue{Value: f.Value, Param: f.Param}
}

// UnmarshalTOML implements toml.Unmarshaler.
func (f *Float) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		f.Value = float32(x)
	case float64:
		f.Value = float32(x)
	case string:
		return f.parseParam(x)
	default:
		return fmt.Errorf("%w: float setting must be a number or param, got %T", ErrInvalidValue, v)
	}
	f.set = true
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Float) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: float setting at line %d must be a scalar", ErrInvalidValue, node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		v, err := strconv.ParseFloat(node.Value, 32)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidValue, node.Line, err)
		}
		f.Value = float32(v)
		f.set = true
		return nil
	default:
		return f.parseParam(node.Value)
	}
}

func (f *Float) parseParam(s string) error {
	name, def, hasDefault := strings.Cut(strings.TrimSpace(s), "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty param name in %q", ErrInvalidValue, s)
	}
	f.Param = name
	if hasDefault {
		v, err := strconv.ParseFloat(strings.TrimSpace(def), 32)
		if err != nil {
			return fmt.Errorf("%w: param %s default: %v", ErrInvalidValue, name, err)
		}
		f.Value = float32(v)
	}
	f.set = true
	return nil
}
