package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/leapstack-labs/starp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	err := run(context.Background(), NewRootCmd(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"render", "compile", "check", "watch", "libs", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "verbose", "log-format", "color", "format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRun_Render(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"lib/fmtx.star": "def pad(s, n):\n    return s + \" \" * (n - len(s))\n",
		"page.tpl":      "[${fmtx.pad(who, 5)}]\n",
	})

	out, errOut, err := runCLI(t, "render", "--lib", filepath.Join(dir, "lib"), "--var", "who=ann", filepath.Join(dir, "page.tpl"))
	require.NoError(t, err, errOut)
	assert.Equal(t, "[ann  ]\n", out)
}

func TestRun_RenderFlagsBeforeTemplate(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"page.tpl": "title=${vars.get(\"title\", \"\")} argv=${json.encode(argv[1:])}\n",
	})
	path := filepath.Join(dir, "page.tpl")
	outFile := filepath.Join(dir, "out.txt")

	out, errOut, err := runCLI(t, "render", "-o", outFile, "--var", "title=Q", path, "2024")
	require.NoError(t, err, errOut)
	assert.Empty(t, out)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "title=Q argv=[\"2024\"]\n", string(data))

	// After the template path, flags are template arguments.
	late := filepath.Join(dir, "late.txt")
	out, errOut, err = runCLI(t, "render", path, "--var", "title=Q", "-o", late)
	require.NoError(t, err, errOut)
	assert.Equal(t, `title= argv=["--var","title=Q","-o",`+strconv.Quote(late)+"]\n", out)
	assert.NoFileExists(t, late)
}

func TestRun_ReportsMappedError(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"page.tpl": "one\ntwo\n${1 // 0}\n",
	})
	path := filepath.Join(dir, "page.tpl")

	_, errOut, err := runCLI(t, "--color", "never", "--format", "text", "render", path)
	require.Error(t, err)
	assert.Contains(t, errOut, path+":3: floored division by zero")
	assert.Contains(t, errOut, "    3 | ${1 // 0}")
}

func TestRun_InvalidConfig(t *testing.T) {
	_, errOut, err := runCLI(t, "--color", "sometimes", "version")
	require.ErrorContains(t, err, `invalid color "sometimes"`)
	assert.Contains(t, errOut, "invalid color")
}

func TestRun_Version(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "starp v"+Version)
}

func TestRun_Completion(t *testing.T) {
	out, _, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")
}
