package rundoc

import (
	"fmt"
)

// LegacyOpKind tags the line-oriented ops produced by older document
// editing tools (see spec §4.2: "a separate legacy line-oriented variant
// exists ... it is converted to the character-oriented form before
// storage").
type LegacyOpKind string

const (
	LegacyOpAppend  LegacyOpKind = "Append"
	LegacyOpInsert  LegacyOpKind = "Insert"
	LegacyOpDelete  LegacyOpKind = "Delete"
	LegacyOpReplace LegacyOpKind = "Replace"
)

// LegacyOp is a line-addressed edit: Append has no Line; Insert/Delete/
// Replace address a 1-based line number. Delete/Replace additionally
// consume Count lines starting at Line (default 1).
type LegacyOp struct {
	Kind  LegacyOpKind
	Line  int
	Count int
	Text  string
}

// ConvertLegacyOps translates a sequence of line-oriented ops into the
// character-oriented PatchOp form, resolved against content as it stood
// before any of these ops were applied. Each legacy op is resolved
// independently against the ORIGINAL content's line table — ops must not
// depend on the effects of earlier ops in the same batch, matching how
// the legacy tools always operated on a fully-materialized snapshot.
func ConvertLegacyOps(content string, legacyOps []LegacyOp) ([]PatchOp, error) {
	lines, offsets := lineOffsets(content)

	var out []PatchOp
	for _, lop := range legacyOps {
		switch lop.Kind {
		case LegacyOpAppend:
			out = append(out, PatchOp{Kind: PatchOpInsert, Pos: len([]rune(content)), Text: lop.Text})

		case LegacyOpInsert:
			pos, err := lineStartPos(lines, offsets, lop.Line)
			if err != nil {
				return nil, err
			}
			out = append(out, PatchOp{Kind: PatchOpInsert, Pos: pos, Text: lop.Text})

		case LegacyOpDelete:
			count := lop.Count
			if count <= 0 {
				count = 1
			}
			start, end, _, err := lineRangePos(lines, offsets, lop.Line, count)
			if err != nil {
				return nil, err
			}
			out = append(out, PatchOp{Kind: PatchOpDelete, Pos: start, Len: end - start})

		case LegacyOpReplace:
			count := lop.Count
			if count <= 0 {
				count = 1
			}
			start, end, consumedLeadingSep, err := lineRangePos(lines, offsets, lop.Line, count)
			if err != nil {
				return nil, err
			}
			out = append(out, PatchOp{Kind: PatchOpDelete, Pos: start, Len: end - start})

			text := lop.Text
			switch {
			case consumedLeadingSep:
				text = "\n" + text
			case end < totalRunes(lines):
				text = text + "\n"
			}
			out = append(out, PatchOp{Kind: PatchOpInsert, Pos: start, Text: text})

		default:
			return nil, fmt.Errorf("rundoc: unknown legacy op kind %q", lop.Kind)
		}
	}
	return out, nil
}

// lineOffsets splits content into lines (by '\n', separators kept out of
// the line text) and returns, for each line index, its rune offset into
// content.
func lineOffsets(content string) ([]string, []int) {
	runes := []rune(content)
	var lines []string
	var offsets []int

	offsets = append(offsets, 0)
	start := 0
	for i, r := range runes {
		if r == '\n' {
			lines = append(lines, string(runes[start:i]))
			start = i + 1
			offsets = append(offsets, start)
		}
	}
	lines = append(lines, string(runes[start:]))
	return lines, offsets
}

// totalRunes returns the rune length of the original content that lines
// was split from (lines joined by '\n').
func totalRunes(lines []string) int {
	total := 0
	for i, l := range lines {
		if i > 0 {
			total++ // separator
		}
		total += len([]rune(l))
	}
	return total
}

// lineStartPos returns the rune offset where 1-based line n begins.
func lineStartPos(lines []string, offsets []int, n int) (int, error) {
	if n < 1 || n > len(lines) {
		return 0, fmt.Errorf("rundoc: legacy line %d out of range [1,%d]", n, len(lines))
	}
	return offsets[n-1], nil
}

// lineRangePos returns the [start,end) rune offsets spanning count lines
// starting at 1-based line n. When the range reaches the last line of the
// document and isn't the whole document, the range is extended backward
// to also consume the separating newline before it (consumedLeadingSep)
// instead of a trailing one, since there's no line after it to own that
// separator.
func lineRangePos(lines []string, offsets []int, n, count int) (start, end int, consumedLeadingSep bool, err error) {
	start, err = lineStartPos(lines, offsets, n)
	if err != nil {
		return 0, 0, false, err
	}
	lastLine := n + count - 1
	if lastLine > len(lines) {
		return 0, 0, false, fmt.Errorf("rundoc: legacy range [%d,%d) out of range [1,%d]", n, lastLine+1, len(lines))
	}

	if lastLine == len(lines) {
		if n > 1 {
			start--
			consumedLeadingSep = true
		}
		return start, totalRunes(lines), consumedLeadingSep, nil
	}
	end = offsets[lastLine]
	return start, end, false, nil
}
