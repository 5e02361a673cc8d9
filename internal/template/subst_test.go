package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textLine(s string) Line {
	return Line{SourceLine: SourceLine{Index: 1, Raw: s}, Kind: KindText, Code: s}
}

func TestScanSubstitutions(t *testing.T) {
	type frag struct {
		expr bool
		val  string
	}

	tests := []struct {
		name  string
		input string
		want  []frag
	}{
		{"plain text", "hello", []frag{{false, "hello"}}},
		{"single expression", "${x}", []frag{{true, "x"}}},
		{"whitespace trimmed", "${  1 + 1  }", []frag{{true, "1 + 1"}}},
		{
			name:  "text around expression",
			input: "a ${x} b",
			want:  []frag{{false, "a "}, {true, "x"}, {false, " b"}},
		},
		{
			name:  "adjacent expressions",
			input: "${a}${b}",
			want:  []frag{{true, "a"}, {true, "b"}},
		},
		{
			name:  "nested dict braces",
			input: `${ {"a":1}["a"] }`,
			want:  []frag{{true, `{"a":1}["a"]`}},
		},
		{
			name:  "closing brace in double quoted string",
			input: `${ "}" + x }!`,
			want:  []frag{{true, `"}" + x`}, {false, "!"}},
		},
		{
			name:  "opening brace in single quoted string",
			input: `${ '{' }`,
			want:  []frag{{true, `'{'`}},
		},
		{
			name:  "escaped quote inside string",
			input: `${ "a\"}" }`,
			want:  []frag{{true, `"a\"}"`}},
		},
		{
			name:  "escaped substitution",
			input: "cost: $${price}",
			want:  []frag{{false, "cost: ${price}"}},
		},
		{
			name:  "dollar without brace",
			input: "$5 and $x",
			want:  []frag{{false, "$5 and $x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags, err := ScanSubstitutions("test.tpl", textLine(tt.input))
			require.NoError(t, err)
			require.Len(t, frags, len(tt.want))

			for i, w := range tt.want {
				assert.Equal(t, w.expr, frags[i].IsExpr, "fragment[%d] kind", i)
				if w.expr {
					assert.Equal(t, w.val, frags[i].Expr, "fragment[%d] expr", i)
				} else {
					assert.Equal(t, w.val, frags[i].Literal, "fragment[%d] literal", i)
				}
			}
		})
	}
}

func TestScanSubstitutions_Column(t *testing.T) {
	frags, err := ScanSubstitutions("test.tpl", textLine("ab ${x}"))
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, 4, frags[1].Col)
	assert.Equal(t, 1, frags[1].Line)
}

func TestScanSubstitutions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantCol int
		wantMsg string
	}{
		{"unterminated", "a ${x", 3, "unterminated substitution"},
		{"unterminated nested", "${ {1: 2 }", 1, "unterminated substitution"},
		{"brace only in string", `${ "}" `, 1, "unterminated substitution"},
		{"empty", "x ${   } y", 3, "empty substitution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanSubstitutions("test.tpl", textLine(tt.input))
			require.Error(t, err)

			var serr *StructuralError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, 1, serr.Position().Line)
			assert.Equal(t, tt.wantCol, serr.Position().Column)
			assert.Contains(t, serr.Error(), tt.wantMsg)
		})
	}
}
