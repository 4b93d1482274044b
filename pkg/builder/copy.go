package builder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/layout"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
	"github.com/sfuhrm/capsula/pkg/utils/permissions"
)

// copyCommand copies a file or directory of the layout into the working
// directory. Every path it creates, missing parents included, gets the
// command's permission set.
func (b *Builder) copyCommand(logger hclog.Logger, cmd *layout.CopyCommand) error {
	if strings.TrimSpace(cmd.From) == "" || strings.TrimSpace(cmd.To) == "" {
		return cerrors.Configf("copy: from and to are required")
	}

	from, err := fsutil.Within(b.layoutDir, cmd.From)
	if err != nil {
		return err
	}
	if !fsutil.Exists(from) {
		return fmt.Errorf("%w: copy source %s in %s", cerrors.ErrNotFound, cmd.From, b.layoutDir)
	}
	to, err := fsutil.Within(b.workDir, cmd.To)
	if err != nil {
		return err
	}
	if fsutil.Exists(to) {
		return fmt.Errorf("%w: copy target %s already exists", cerrors.ErrIO, cmd.To)
	}

	set := cmd.Permissions()
	parents, err := fsutil.Mkdirs(filepath.Dir(to), permissions.DefaultDirPerms)
	if err != nil {
		return err
	}
	created := 0
	err = fsutil.CopyRecursive(from, to, func(path string) error {
		created++
		return permissions.Apply(path, set)
	})
	if err != nil {
		return err
	}
	for _, dir := range parents {
		if err := permissions.Apply(dir, set); err != nil {
			return err
		}
	}

	logger.Info("📄 Copied", "from", cmd.From, "to", cmd.To, "paths", created+len(parents))
	return nil
}
