package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/starp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func writeLib(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "lib")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name           string
		setupDir       func(t *testing.T) string
		wantNil        bool
		wantErr        bool
		wantNamespaces []string
		checkExports   map[string][]string
	}{
		{
			name:     "empty directory",
			setupDir: func(t *testing.T) string { return writeLib(t, nil) },
		},
		{
			name:     "non-existent directory",
			setupDir: func(_ *testing.T) string { return "/nonexistent/path/to/lib" },
			wantNil:  true,
		},
		{
			name: "not a directory",
			setupDir: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "lib")
				require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o644))
				return path
			},
			wantErr: true,
		},
		{
			name: "functions and private names",
			setupDir: func(t *testing.T) string {
				return writeLib(t, map[string]string{"text.star": `
def banner(title):
    return "== " + title + " =="

def indent(s, n = 4):
    return " " * n + s

_private = "hidden"
`})
			},
			wantNamespaces: []string{"text"},
			checkExports:   map[string][]string{"text": {"banner", "indent"}},
		},
		{
			name: "several files in lexical order",
			setupDir: func(t *testing.T) string {
				return writeLib(t, map[string]string{
					"zz.star": "def last():\n    return 2\n",
					"aa.star": "def first():\n    return 1\n",
				})
			},
			wantNamespaces: []string{"aa", "zz"},
		},
		{
			name: "top-level loop",
			setupDir: func(t *testing.T) string {
				return writeLib(t, map[string]string{"nums.star": "squares = []\nfor i in range(3):\n    squares.append(i * i)\n"})
			},
			wantNamespaces: []string{"nums"},
			checkExports:   map[string][]string{"nums": {"squares"}},
		},
		{
			name: "syntax error",
			setupDir: func(t *testing.T) string {
				return writeLib(t, map[string]string{"broken.star": "def broken(:\n    return 1\n"})
			},
			wantErr: true,
		},
		{
			name: "invalid namespace",
			setupDir: func(t *testing.T) string {
				return writeLib(t, map[string]string{"123invalid.star": "x = 1"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules, err := NewLoader(tt.setupDir(t)).Load()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, modules)
				return
			}

			var namespaces []string
			byName := make(map[string]*LoadedModule)
			for _, m := range modules {
				namespaces = append(namespaces, m.Namespace)
				byName[m.Namespace] = m
			}
			assert.Equal(t, tt.wantNamespaces, namespaces)

			for ns, exports := range tt.checkExports {
				module := byName[ns]
				require.NotNil(t, module, "namespace %q", ns)
				for _, name := range exports {
					assert.Contains(t, module.Exports, name)
				}
				assert.NotContains(t, module.Exports, "_private")
			}
		})
	}
}

func TestLoader_LoadError(t *testing.T) {
	dir := writeLib(t, map[string]string{"broken.star": "def broken(:\n    return 1\n"})

	_, err := NewLoader(dir).Load()
	require.Error(t, err)

	loadErr, ok := err.(*LoadError)
	require.True(t, ok, "expected *LoadError, got %T", err)
	assert.Equal(t, filepath.Join(dir, "broken.star"), loadErr.File)
	assert.Contains(t, loadErr.Error(), "lib/broken.star")
	assert.NotNil(t, loadErr.Unwrap())
}

func TestLoader_WithPredeclared(t *testing.T) {
	dir := writeLib(t, map[string]string{"greet.star": "def hello():\n    return prefix + \"world\"\n"})

	modules, err := NewLoader(dir, WithPredeclared(starlark.StringDict{
		"prefix": starlark.String("hello, "),
	})).Load()
	require.NoError(t, err)
	require.Len(t, modules, 1)

	thread := &starlark.Thread{Name: "test"}
	result, err := starlark.Call(thread, modules[0].Exports["hello"], nil, nil)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("hello, world"), result)
}

func TestLoader_WithLoadFunc(t *testing.T) {
	dir := writeLib(t, map[string]string{"uses.star": `load("base.star", "unit")
def twice():
    return unit * 2
`})

	var requested []string
	loader := NewLoader(dir, WithLoadFunc(func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
		requested = append(requested, module)
		return starlark.StringDict{"unit": starlark.MakeInt(21)}, nil
	}))
	modules, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, []string{"base.star"}, requested)

	thread := &starlark.Thread{Name: "test"}
	result, err := starlark.Call(thread, modules[0].Exports["twice"], nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "42", result.String())
}

func TestLoader_WithExecFunc(t *testing.T) {
	dir := writeLib(t, map[string]string{"a.star": "x = 1\n", "b.star": "y = 2\n"})

	shared := starlark.StringDict{"shared": starlark.MakeInt(7), "_hidden": starlark.None}
	var executed []string
	modules, err := NewLoader(dir, WithExecFunc(func(path string) (starlark.StringDict, error) {
		executed = append(executed, filepath.Base(path))
		return shared, nil
	})).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a.star", "b.star"}, executed)
	require.Len(t, modules, 2)
	for _, m := range modules {
		assert.Equal(t, []string{"shared"}, m.Exports.Keys())
	}
}

func TestLoader_PrintGoesToLogger(t *testing.T) {
	dir := writeLib(t, map[string]string{"noisy.star": "print(\"loading noisy\")\n"})

	logger, logs := testutil.NewCaptureLogger()
	_, err := NewLoader(dir, WithLogger(logger)).Load()
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"msg":"loading noisy"`)
	assert.Contains(t, logs.String(), `"lib":"lib:noisy"`)
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"strings", false},
		{"date_time", false},
		{"_private", false},
		{"utils2", false},
		{"", true},
		{"123abc", true},
		{"date-time", true},
		{"date time", true},
		{"date.time", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateNamespace(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "validateNamespace(%q) = %v", tt.input, err)
		})
	}
}

func TestFiles_EmptyDir(t *testing.T) {
	files, err := Files("")
	require.NoError(t, err)
	assert.Nil(t, files)
}
