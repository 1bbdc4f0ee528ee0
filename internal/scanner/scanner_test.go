package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("# Doc\n"), 0o600))
	return path
}

func relPaths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func TestScan_OrderedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.md")
	writeFile(t, root, "a.md")
	writeFile(t, root, "sub/c.markdown")
	writeFile(t, root, "sub/skip.txt")
	writeFile(t, root, "image.png")

	files, errs := Scan([]string{root}, Options{})
	require.Empty(t, errs)
	require.Equal(t, []string{"a.md", "b.md", "sub/c.markdown"}, relPaths(files))
}

func TestScan_ExcludeTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md")
	writeFile(t, root, "drafts/wip.md")

	files, errs := Scan([]string{root}, Options{Exclude: []string{"drafts/**"}})
	require.Empty(t, errs)
	require.Equal(t, []string{"keep.md"}, relPaths(files))
}

func TestScan_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.md")
	writeFile(t, root, "sub/mid.md")
	writeFile(t, root, "sub/inner/deep.md")

	files, errs := Scan([]string{root}, Options{MaxDepth: 2})
	require.Empty(t, errs)
	require.Equal(t, []string{"sub/mid.md", "top.md"}, relPaths(files))
}

func TestScan_SkipsHiddenEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "visible.md")
	writeFile(t, root, ".hidden.md")
	writeFile(t, root, ".git/objects/fake.md")

	files, errs := Scan([]string{root}, Options{})
	require.Empty(t, errs)
	require.Equal(t, []string{"visible.md"}, relPaths(files))
}

func TestScan_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md")
	writeFile(t, root, "vendor/dep.md")
	writeFile(t, root, "generated.md")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"),
		[]byte("# build output\nvendor/\ngenerated.md\n"), 0o600))

	files, errs := Scan([]string{root}, Options{RespectGitignore: true})
	require.Empty(t, errs)
	require.Equal(t, []string{"keep.md"}, relPaths(files))
}

func TestScan_MissingRootIsPerRootError(t *testing.T) {
	good := t.TempDir()
	writeFile(t, good, "ok.md")

	files, errs := Scan([]string{filepath.Join(good, "does-not-exist"), good}, Options{})
	require.Len(t, errs, 1)
	require.Equal(t, []string{"ok.md"}, relPaths(files))
}

func TestScan_MultipleRoots(t *testing.T) {
	r1 := t.TempDir()
	r2 := t.TempDir()
	writeFile(t, r1, "one.md")
	writeFile(t, r2, "two.md")

	files, errs := Scan([]string{r1, r2}, Options{})
	require.Empty(t, errs)
	require.Len(t, files, 2)
	for _, f := range files {
		require.NotEmpty(t, f.Root)
		require.True(t, filepath.IsAbs(f.Path))
	}
}
