package locator

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// Bundled serves layouts from a ResourceIndex.
type Bundled struct {
	index *ResourceIndex
}

// NewBundled creates a locator over index.
func NewBundled(index *ResourceIndex) *Bundled {
	return &Bundled{index: index}
}

// Targets implements Locator.
func (b *Bundled) Targets() ([]string, error) {
	return b.index.Targets(), nil
}

// Extract implements Locator.
func (b *Bundled) Extract(parentDir, name string) (string, error) {
	if !contains(b.index.targets, name) {
		return "", fmt.Errorf("%w: target %q, available: %v", cerrors.ErrNotFound, name, b.index.targets)
	}
	targetDir := path.Join(TargetsDir, name)
	targetFiles := b.index.Files(targetDir)
	if len(targetFiles) == 0 {
		return "", fmt.Errorf("%w: %s", cerrors.ErrEmptyTarget, name)
	}

	dst, err := prepareDestination(parentDir, name)
	if err != nil {
		return "", err
	}
	if err := b.write(IncludeDir, b.index.Files(IncludeDir), dst); err != nil {
		return "", err
	}
	if err := b.write(targetDir, targetFiles, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (b *Bundled) write(dir string, files []string, dst string) error {
	for _, rel := range files {
		data, _ := b.index.Read(path.Join(dir, rel))
		out := filepath.Join(dst, filepath.FromSlash(rel))
		if _, err := fsutil.Mkdirs(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return cerrors.IOf(err, "write %s", out)
		}
	}
	return nil
}

func (b *Bundled) String() string {
	return "bundled layouts"
}
