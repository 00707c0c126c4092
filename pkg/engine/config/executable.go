package config

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// resolveExecutable picks the executable path to spawn for desc within
// dir: the primary Executable if present on fs, else the first
// ExecutableAlternatives entry whose OS (and Arch, if given) matches the
// running platform and whose file exists.
func resolveExecutable(fs afero.Fs, dir string, desc EngineDescriptor) (string, error) {
	candidates := []string{desc.Executable}
	for _, alt := range desc.ExecutableAlternatives {
		if alt.OS != runtime.GOOS {
			continue
		}
		if alt.Arch != "" && alt.Arch != runtime.GOARCH {
			continue
		}
		candidates = append(candidates, alt.Executable)
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		full := filepath.Join(dir, c)
		exists, err := afero.Exists(fs, full)
		if err != nil {
			return "", err
		}
		if exists {
			abs, err := filepath.Abs(full)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("%w: no usable executable for %s among %v", ErrMissingFile, desc.ID, candidates)
}
