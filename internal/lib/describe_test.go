package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeFile(t *testing.T) {
	src := `
def banner(title, width = 40, *rest, **opts):
    """Centers title in a line of '=' characters.

    Extra lines are not part of the summary.
    """
    return title.center(width, "=")

def _helper():
    pass

def neg(x = -1, items = [], m = {}, t = (1, 2), *, sep = ", ".join([]), flag = not True):
    return x

VALUE = 3
`
	doc, err := DescribeFile("/lib/text.star", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "text", doc.Namespace)
	require.Len(t, doc.Funcs, 2)

	banner := doc.Funcs[0]
	assert.Equal(t, "banner", banner.Name)
	assert.Equal(t, 2, banner.Line)
	assert.Equal(t, "banner(title, width=40, *rest, **opts)", banner.Signature())
	assert.Equal(t, "Centers title in a line of '=' characters.", banner.Summary())

	neg := doc.Funcs[1]
	assert.Equal(t, []string{"x=-1", "items=[]", "m={}", "t=(...)", "*", `sep=", ".join(...)`, "flag=not True"}, neg.Params)
	assert.Empty(t, neg.Doc)
	assert.Empty(t, neg.Summary())
}

func TestDescribeFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    string
	}{
		{"syntax error", "/lib/bad.star", "def bad(:\n", "lib/bad.star: syntax error"},
		{"invalid namespace", "/lib/my-lib.star", "x = 1\n", "namespace contains invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DescribeFile(tt.path, []byte(tt.content))
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDescribe(t *testing.T) {
	dir := writeLib(t, map[string]string{
		"b.star": "def two():\n    return 2\n",
		"a.star": "def one():\n    return 1\n\nfail(\"not run\")\n",
	})

	docs, err := Describe(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Namespace)
	assert.Equal(t, "b", docs[1].Namespace)
	assert.Equal(t, "one", docs[0].Funcs[0].Name)

	docs, err = Describe("/nonexistent/lib")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
