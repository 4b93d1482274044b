package builder

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/layout"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
	"github.com/sfuhrm/capsula/pkg/utils/permissions"
)

// mkdirCommand creates a directory chain below the working directory and
// applies the permission set to every segment it created, leaf first.
func (b *Builder) mkdirCommand(logger hclog.Logger, cmd *layout.MkdirCommand) error {
	if strings.TrimSpace(cmd.To) == "" {
		return cerrors.Configf("mkdir: to is required")
	}
	to, err := fsutil.Within(b.workDir, cmd.To)
	if err != nil {
		return err
	}
	if fsutil.Exists(to) {
		return fmt.Errorf("%w: mkdir target %s already exists", cerrors.ErrIO, cmd.To)
	}

	created, err := fsutil.Mkdirs(to, permissions.DefaultDirPerms)
	if err != nil {
		return err
	}
	set := cmd.Permissions()
	for _, dir := range created {
		if err := permissions.Apply(dir, set); err != nil {
			return err
		}
	}

	logger.Info("📁 Created directory", "to", cmd.To, "created", len(created))
	return nil
}
