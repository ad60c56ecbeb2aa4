package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a CLI output format.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --format value. Empty means human.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHuman, nil
	case FormatHuman, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want human, json or yaml)", s)
	}
}

// Write renders v to w. Human output is delegated to human, which may be nil
// to fall back to indented JSON.
func Write(w io.Writer, format Format, v interface{}, human func(io.Writer) error) error {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = DeterministicEncodeIndented(v, "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = EncodeYAML(v)
	default:
		if human != nil {
			return human(w)
		}
		data, err = DeterministicEncodeIndented(v, "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// DeterministicEncode produces compact JSON with sorted keys and rounded floats.
func DeterministicEncode(v interface{}) ([]byte, error) {
	tree, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// DeterministicEncodeIndented is DeterministicEncode with indentation.
func DeterministicEncodeIndented(v interface{}, indent string) ([]byte, error) {
	tree, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// EncodeYAML renders the normalised form of v as YAML.
func EncodeYAML(v interface{}) ([]byte, error) {
	tree, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize round-trips v through encoding/json so struct tags apply, then
// rounds floats and drops null members.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return clean(tree), nil
}

func clean(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, member := range val {
			if member == nil {
				delete(val, k)
				continue
			}
			val[k] = clean(member)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = clean(val[i])
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return RoundFloat(f)
	default:
		return v
	}
}
