package builder

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/layout"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
	"github.com/sfuhrm/capsula/pkg/utils/permissions"
)

// templateCommand renders a layout template into the working directory.
// Missing parents are created with the default directory mode; the
// permission set only applies to the rendered file.
func (b *Builder) templateCommand(logger hclog.Logger, cmd *layout.TemplateCommand) error {
	if strings.TrimSpace(cmd.From) == "" || strings.TrimSpace(cmd.To) == "" {
		return cerrors.Configf("template: from and to are required")
	}
	to, err := fsutil.Within(b.workDir, cmd.To)
	if err != nil {
		return err
	}
	if _, err := fsutil.Mkdirs(filepath.Dir(to), permissions.DefaultDirPerms); err != nil {
		return err
	}

	if err := b.engine.RenderFile(filepath.ToSlash(cmd.From), map[string]interface{}(b.env), to, permissions.DefaultFilePerms); err != nil {
		return err
	}
	if err := permissions.Apply(to, cmd.Permissions()); err != nil {
		return err
	}

	logger.Info("📝 Rendered template", "from", cmd.From, "to", cmd.To)
	return nil
}
