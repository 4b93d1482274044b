package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfuhrm/capsula/layouts"
	"github.com/sfuhrm/capsula/pkg/descriptor"
	"github.com/sfuhrm/capsula/pkg/locator"
)

func bundledBuilder(t *testing.T, target string, stop Stage) *Builder {
	t.Helper()
	desc, err := descriptor.Load(filepath.Join("..", "descriptor", "testdata", descriptor.FileName))
	require.NoError(t, err)

	idx, err := locator.NewResourceIndex(layouts.FS)
	require.NoError(t, err)
	root := t.TempDir()
	layoutDir, err := locator.NewBundled(idx).Extract(root, target)
	require.NoError(t, err)

	b, err := New(Options{
		Descriptor: desc,
		BuildRoot:  root,
		Target:     target,
		LayoutDir:  layoutDir,
		StopAfter:  stop,
		Logger:     hclog.NewNullLogger(),
	})
	require.NoError(t, err)
	return b
}

func TestBundledCentosPrepare(t *testing.T) {
	b := bundledBuilder(t, "centos_7", StagePrepare)
	require.NoError(t, b.Build(context.Background()))

	assert.Equal(t, []string{"rpmbuild/RPMS/noarch/hello-1.1-1.el7.noarch.rpm"}, b.Layout().Packages)

	spec, err := os.ReadFile(filepath.Join(b.WorkingDir(), "rpmbuild", "SPECS", "hello.spec"))
	require.NoError(t, err)
	assert.Contains(t, string(spec), "Release:        1%{?dist}")
	assert.Contains(t, string(spec), "* Tue May 01 2018 Stephan Fuhrmann <s@example.com> - 1.1-1")
	assert.Contains(t, string(spec), "/usr/bin/hello")

	script := filepath.Join(b.WorkingDir(), "rpmbuild", "SOURCES", "capsula-install.sh")
	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	data, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.Contains(t, string(data), `chmod 0755 "$DESTDIR/usr/bin/hello"`)

	for _, dir := range []string{"BUILD", "RPMS", "SOURCES", "SPECS", "SRPMS"} {
		assert.DirExists(t, filepath.Join(b.WorkingDir(), "rpmbuild", dir))
	}
}

func TestBundledDebianLayout(t *testing.T) {
	b := bundledBuilder(t, "debian_stretch", StageReadDescriptor)
	require.NoError(t, b.Build(context.Background()))

	assert.Equal(t, "debian_stretch", b.Layout().ID)
	assert.Equal(t, []string{"hello_1.1-1_all.deb"}, b.Layout().Packages)
	assert.Equal(t, "hello-1.1", b.Environment()["sourceDir"])
	assert.NotEmpty(t, b.Layout().Prepare)
}
