// ABOUTME: Output naming for converted files
// ABOUTME: Places <stem>_<index>.svg next to the input or in an override directory

package batch

import (
	"path/filepath"
	"strconv"
	"strings"
)

// OutputExt is the extension of every produced file
const OutputExt = ".svg"

// OutputPath derives the output for the input at index.
// An empty dir keeps the output next to the input. Existing files are overwritten.
func OutputPath(input string, index int, dir string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if dir == "" {
		dir = filepath.Dir(input)
	}

	return filepath.Join(dir, stem+"_"+strconv.Itoa(index)+OutputExt)
}
