package rundoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertLegacyOps_Append(t *testing.T) {
	content := "line1\nline2"
	ops, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpAppend, Text: "\nline3"}})
	require.NoError(t, err)

	result, err := applyOps(content, ops)
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\nline3", result)
}

func TestConvertLegacyOps_InsertAtLine(t *testing.T) {
	content := "line1\nline2\nline3"
	ops, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpInsert, Line: 2, Text: "inserted\n"}})
	require.NoError(t, err)

	result, err := applyOps(content, ops)
	require.NoError(t, err)
	require.Equal(t, "line1\ninserted\nline2\nline3", result)
}

func TestConvertLegacyOps_DeleteLine(t *testing.T) {
	content := "line1\nline2\nline3"
	ops, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpDelete, Line: 2, Count: 1}})
	require.NoError(t, err)

	result, err := applyOps(content, ops)
	require.NoError(t, err)
	require.Equal(t, "line1\nline3", result)
}

func TestConvertLegacyOps_ReplaceLine(t *testing.T) {
	content := "line1\nline2\nline3"
	ops, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpReplace, Line: 2, Count: 1, Text: "replaced"}})
	require.NoError(t, err)

	result, err := applyOps(content, ops)
	require.NoError(t, err)
	require.Equal(t, "line1\nreplaced\nline3", result)
}

func TestConvertLegacyOps_OutOfRangeLine(t *testing.T) {
	content := "line1\nline2"
	_, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpInsert, Line: 10, Text: "x"}})
	require.Error(t, err)
}

func TestConvertLegacyOps_DeleteLastLineNoTrailingNewline(t *testing.T) {
	content := "line1\nline2\nline3"
	ops, err := ConvertLegacyOps(content, []LegacyOp{{Kind: LegacyOpDelete, Line: 3, Count: 1}})
	require.NoError(t, err)

	result, err := applyOps(content, ops)
	require.NoError(t, err)
	require.Equal(t, "line1\nline2", result)
}
