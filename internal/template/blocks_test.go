package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stmtLine(index int, code string) Line {
	return Line{SourceLine: SourceLine{Index: index, Raw: "% " + code}, Kind: KindStatement, Code: code}
}

func TestBlockTracker_Depth(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")

	steps := []struct {
		code      string
		wantDepth int
		wantEmit  bool
		after     int
	}{
		{"if x > 5:", 0, true, 1},
		{"if y < 3:", 1, true, 2},
		{"z = 1", 2, true, 2},
		{"elif y < 10:", 1, true, 2},
		{"z = 2", 2, true, 2},
		{"else:", 1, true, 2},
		{"z = 3", 2, true, 2},
		{"endif", 1, false, 1},
		{"for i in range(3):", 1, true, 2},
		{"endfor", 1, false, 1},
		{"endif", 0, false, 0},
		{"done = True", 0, true, 0},
	}

	for i, step := range steps {
		p, err := tracker.Statement(stmtLine(i+1, step.code), step.code)
		require.NoError(t, err, "step %d (%s)", i, step.code)
		assert.Equal(t, step.wantDepth, p.Depth, "step %d (%s) depth", i, step.code)
		assert.Equal(t, step.wantEmit, p.Emit, "step %d (%s) emit", i, step.code)
		assert.Equal(t, step.after, tracker.Depth(), "step %d (%s) depth after", i, step.code)
	}

	require.NoError(t, tracker.Finish())
}

func TestBlockTracker_CosmeticIndentIgnored(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")

	open := Line{SourceLine: SourceLine{Index: 1, Raw: "        % if x:", Indent: 8}, Kind: KindStatement, Code: "if x:"}
	p, err := tracker.Statement(open, open.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Depth)

	body := Line{SourceLine: SourceLine{Index: 2, Raw: "% y = 1"}, Kind: KindStatement, Code: "y = 1"}
	p, err = tracker.Statement(body, body.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Depth)
}

func TestBlockTracker_Keywords(t *testing.T) {
	tests := []struct {
		code       string
		wantOpened string
	}{
		{"if x:", "if"},
		{"for a, b in pairs:", "for"},
		{"while n > 0:", "while"},
		{"def greet(name):", "def"},
		{"class Point:", "class"},
		{"try:", "try"},
		{"with open(f) as fh:", "with"},
		{"macro row(cells):", "macro"},
		{"iffy = {1: 2}", ""},
		{"format(x):", ""},
		{"for x in y: emit(x)", ""},
		{"if x:  # note", "if"},
		{"for c in \"a#b\":", "for"},
		{"x = 1  # not a header:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			tracker := NewBlockTracker("test.tpl")
			p, err := tracker.Statement(stmtLine(1, tt.code), tt.code)
			require.NoError(t, err)
			if tt.wantOpened == "" {
				assert.Nil(t, p.Opened)
				assert.Equal(t, 0, tracker.Depth())
				return
			}
			require.NotNil(t, p.Opened)
			assert.Equal(t, tt.wantOpened, p.Opened.Keyword)
			assert.Equal(t, 1, p.Opened.OpenedAt)
		})
	}
}

func TestBlockTracker_EndTagWithComment(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")
	for i, code := range []string{"if x:  # always", "y = 1", "else:  # never", "y = 2"} {
		_, err := tracker.Statement(stmtLine(i+1, code), code)
		require.NoError(t, err, code)
	}

	p, err := tracker.Statement(stmtLine(5, "endif  # done"), "endif  # done")
	require.NoError(t, err)
	assert.False(t, p.Emit)
	require.NotNil(t, p.Closed)
	assert.Equal(t, "if", p.Closed.Keyword)
	require.NoError(t, tracker.Finish())
}

func TestBlockTracker_TryContinuations(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")
	for i, code := range []string{"try:", "x = 1", "except:", "x = 2", "else:", "x = 3", "finally:", "x = 4", "endtry"} {
		_, err := tracker.Statement(stmtLine(i+1, code), code)
		require.NoError(t, err, code)
	}
	require.NoError(t, tracker.Finish())
}

func TestBlockTracker_NeedsPass(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")

	_, err := tracker.Statement(stmtLine(1, "if x:"), "if x:")
	require.NoError(t, err)

	p, err := tracker.Statement(stmtLine(2, "else:"), "else:")
	require.NoError(t, err)
	assert.True(t, p.NeedsPass, "empty if body")

	_, err = tracker.Statement(stmtLine(3, "y = 1"), "y = 1")
	require.NoError(t, err)

	p, err = tracker.Statement(stmtLine(4, "endif"), "endif")
	require.NoError(t, err)
	assert.False(t, p.NeedsPass, "non-empty else body")
	require.NotNil(t, p.Closed)
	assert.Equal(t, "if", p.Closed.Keyword)
}

func TestBlockTracker_InMacro(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")
	assert.False(t, tracker.InMacro())

	_, err := tracker.Statement(stmtLine(1, "macro m():"), "macro m():")
	require.NoError(t, err)
	assert.True(t, tracker.InMacro())

	_, err = tracker.Statement(stmtLine(2, "for i in x:"), "for i in x:")
	require.NoError(t, err)
	assert.True(t, tracker.InMacro(), "blocks inside a macro still capture")

	_, err = tracker.Statement(stmtLine(3, "def inner():"), "def inner():")
	require.NoError(t, err)
	assert.False(t, tracker.InMacro(), "a def inside a macro writes to the sink")
}

func TestBlockTracker_Errors(t *testing.T) {
	tests := []struct {
		name       string
		codes      []string
		wantLine   int
		wantOpened int
		wantMsg    string
	}{
		{"end without open", []string{"endif"}, 1, 0, "'endif' without an open block"},
		{"mismatched end", []string{"for x in y:", "endif"}, 2, 1, "does not match open 'for' block (line 1)"},
		{"else without if", []string{"else:"}, 1, 0, "'else' without an open block"},
		{"elif inside for", []string{"for x in y:", "elif z:"}, 2, 1, "'elif' does not match"},
		{"except inside if", []string{"if a:", "except:"}, 2, 1, "'except' does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewBlockTracker("test.tpl")
			var err error
			for i, code := range tt.codes {
				_, err = tracker.Statement(stmtLine(i+1, code), code)
				if err != nil {
					break
				}
			}
			require.Error(t, err)

			var serr *StructuralError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantLine, serr.Position().Line)
			assert.Equal(t, tt.wantOpened, serr.OpenedAt)
			assert.Contains(t, serr.Error(), tt.wantMsg)
		})
	}
}

func TestBlockTracker_FinishUnclosed(t *testing.T) {
	tracker := NewBlockTracker("test.tpl")
	for i, code := range []string{"x = 1", "for i in items:", "if i:", "endif"} {
		_, err := tracker.Statement(stmtLine(i+1, code), code)
		require.NoError(t, err)
	}

	err := tracker.Finish()
	require.Error(t, err)

	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Position().Line, "error points at the opening line")
	assert.Equal(t, "for", serr.Keyword)
	assert.Equal(t, "% for i in items:", serr.Text)
	assert.Contains(t, serr.Error(), "missing 'endfor'")
}
