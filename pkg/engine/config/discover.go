package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/errwrap"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Discover enumerates the immediate subdirectories of root on fs. A
// subdirectory is an engine iff it contains config.json; that file is
// decoded, validated, and has its paths resolved relative to the
// subdirectory. A subdirectory whose config.json fails to parse,
// validate, or whose requiredFiles are missing is skipped — it never
// aborts discovery of the remaining engines.
//
// The returned descriptors are sorted by ID for deterministic catalog
// ordering. The returned error, if non-nil, is a *multierror.Error
// bundling every skipped subdirectory's failure; callers that only want
// the catalog may ignore it.
func Discover(fs afero.Fs, root string, log *logrus.Logger) ([]EngineDescriptor, error) {
	if log == nil {
		log = logrus.New()
	}

	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("config: reading engines root %q: %w", root, err)
	}

	var descriptors []EngineDescriptor
	var result *multierror.Error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		desc, err := loadOne(fs, dir)
		if errors.Is(err, ErrNoConfigJSON) {
			// not an engine directory; nothing to skip or report
			continue
		}
		if err != nil {
			log.WithFields(logrus.Fields{
				"dir":   dir,
				"error": err,
			}).Warn("skipping engine directory: failed to load config.json")
			result = multierror.Append(result, errwrap.Wrapf(fmt.Sprintf("{{err}} (in %s)", dir), err))
			continue
		}

		descriptors = append(descriptors, desc)
		log.WithFields(logrus.Fields{"id": desc.ID, "name": desc.Name}).Info("discovered engine")
	}

	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].ID < descriptors[j].ID })

	var retErr error
	if result != nil {
		retErr = result.ErrorOrNil()
	}
	return descriptors, retErr
}

// loadOne loads, validates, and resolves a single engine directory.
func loadOne(fs afero.Fs, dir string) (EngineDescriptor, error) {
	configPath := filepath.Join(dir, "config.json")

	exists, err := afero.Exists(fs, configPath)
	if err != nil {
		return EngineDescriptor{}, err
	}
	if !exists {
		return EngineDescriptor{}, ErrNoConfigJSON
	}

	raw, err := afero.ReadFile(fs, configPath)
	if err != nil {
		return EngineDescriptor{}, fmt.Errorf("reading config.json: %w", err)
	}

	var desc EngineDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return EngineDescriptor{}, fmt.Errorf("parsing config.json: %w", err)
	}

	if err := Validate(desc); err != nil {
		return EngineDescriptor{}, err
	}

	desc.WorkingDirectory = dir
	desc.ExecutablePath, err = resolveExecutable(fs, dir, desc)
	if err != nil {
		return EngineDescriptor{}, err
	}

	if err := requiredFilesExist(fs, dir, desc.RequiredFiles); err != nil {
		return EngineDescriptor{}, err
	}

	return desc, nil
}

func requiredFilesExist(fs afero.Fs, dir string, files []string) error {
	for _, f := range files {
		exists, err := afero.Exists(fs, filepath.Join(dir, f))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrMissingFile, f)
		}
	}
	return nil
}
