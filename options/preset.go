// ABOUTME: Read-only TOML presets and passthrough argument parsing
// ABOUTME: Layers preset values over the defaults; never writes anything back to disk

package options

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/shlex"
)

// LoadPreset decodes a TOML preset on top of base.
// Keys absent from the file keep the value from base. Unknown keys are an error.
func LoadPreset(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, fmt.Errorf("preset not found: %s", path)
		}

		return base, fmt.Errorf("failed to read preset: %w", err)
	}

	opts := base.Clone()

	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return base, fmt.Errorf("failed to parse preset: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		sort.Strings(keys)

		return base, fmt.Errorf("%w: unknown preset keys: %s", ErrInvalidOption, strings.Join(keys, ", "))
	}

	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return base, fmt.Errorf("preset %s: %w", path, err)
	}

	return opts, nil
}

// SplitExtra splits a free-form flag string the way a POSIX shell would
func SplitExtra(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("%w: extra arguments: %v", ErrInvalidOption, err)
	}

	return args, nil
}
