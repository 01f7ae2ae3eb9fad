package hirio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/hirio"
	"github.com/sourcelang/corec/internal/types"
)

func TestDecodeBuildsFunctionWithLiteralAndReturn(t *testing.T) {
	doc := []byte(`
functions:
  - name: answer
    result: Int
    body:
      vars:
        - {name: x, type: Int, kind: local}
      blocks:
        - instructions:
            - {kind: integer_literal, dest: x, int_value: 42}
            - {kind: return, value: x}
`)
	prog, err := hirio.Decode(doc)
	require.NoError(t, err)

	fn, ok := prog.Function("answer")
	require.True(t, ok)
	require.NotNil(t, fn.Body)
	require.Equal(t, "Int", fn.Result.String())
	require.Len(t, fn.Body.Blocks[fn.Body.Entry].Instructions, 2)
}

func TestDecodeWiresStructFieldsAndFunctionCall(t *testing.T) {
	doc := []byte(`
structs:
  - name: Pair
    fields:
      - {name: a, type: Int}
      - {name: b, type: Int}
functions:
  - name: main
    body:
      vars:
        - {name: n, type: Int, kind: local}
        - {name: r, type: Int, kind: temp}
      blocks:
        - instructions:
            - {kind: integer_literal, dest: n, int_value: 7}
            - {kind: function_call, dest: r, call: double, args: [n]}
            - {kind: return, value: r}
`)
	prog, err := hirio.Decode(doc)
	require.NoError(t, err)

	s, ok := prog.Structs["Pair"]
	require.True(t, ok)
	require.Len(t, s.Fields, 2)

	fn, ok := prog.Function("main")
	require.True(t, ok)
	instrs := fn.Body.Blocks[fn.Body.Entry].Instructions
	require.Len(t, instrs, 3)
}

func TestDecodeRejectsUnsupportedInstructionKind(t *testing.T) {
	doc := []byte(`
functions:
  - name: f
    body:
      blocks:
        - instructions:
            - {kind: yield}
`)
	_, err := hirio.Decode(doc)
	require.Error(t, err)
}

func TestParseTypeRoundTripsEveryShape(t *testing.T) {
	cases := []string{
		"Int",
		"&Int",
		"*Int",
		"()",
		"(Int, String)",
		"fn(Int) -> Int",
		"fn() -> void",
		"Self",
		"!",
		"void",
		"void*",
		"coroutine(Int, Int)",
		"Pair[Int, String]",
	}
	for _, s := range cases {
		ty, err := parseTypeForTest(t, s)
		require.NoError(t, err, s)
		require.Equal(t, s, ty.String(), "round-trip for %q", s)
	}
}

// parseTypeForTest reaches hirio's unexported parseType indirectly by
// building a one-field struct through Decode and reading its type back,
// since the parser itself is an implementation detail of the decoder.
func parseTypeForTest(t *testing.T, typeStr string) (types.Type, error) {
	t.Helper()
	doc := []byte("structs:\n  - name: S\n    fields:\n      - {name: f, type: \"" + escapeYAML(typeStr) + "\"}\n")
	prog, err := hirio.Decode(doc)
	if err != nil {
		return nil, err
	}
	return prog.Structs["S"].Fields[0].Type, nil
}

func escapeYAML(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
