package lines

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"nqs/internal/errors"
)

// Format is a line-set file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported line-set file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads a line-set file.
func LoadFile(path string) (*Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open line-set file: %w", err)
	}
	defer f.Close()

	set, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Decode reads a line set from r. Lines without an id get a random one and
// mutex lines without numActive default to one. Duplicate ids are rejected.
func Decode(r io.Reader, format Format) (*Set, error) {
	set := &Set{}
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(set); err != nil {
			return nil, errors.New(errors.ParseFailed, "invalid TOML line set", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(set); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.New(errors.ParseFailed, "invalid YAML line set", err)
		}
	default:
		return nil, fmt.Errorf("unknown line-set format %q", format)
	}

	if err := normalize(set); err != nil {
		return nil, err
	}
	return set, nil
}

func normalize(set *Set) error {
	seen := make(map[string]struct{}, set.Len())
	claim := func(id *string) error {
		if *id == "" {
			*id = uuid.NewString()
		}
		if _, dup := seen[*id]; dup {
			return errors.New(errors.ParseFailed, fmt.Sprintf("duplicate line id %q", *id), nil)
		}
		seen[*id] = struct{}{}
		return nil
	}

	for _, l := range set.AF {
		if l == nil {
			return errors.New(errors.ParseFailed, "empty af entry", nil)
		}
		if err := claim(&l.ID); err != nil {
			return err
		}
	}
	for _, l := range set.Mutex {
		if l == nil {
			return errors.New(errors.ParseFailed, "empty mutex entry", nil)
		}
		if err := claim(&l.ID); err != nil {
			return err
		}
		if l.NumActive == 0 {
			l.NumActive = 1
		}
	}
	return nil
}
