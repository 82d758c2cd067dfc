package markdown

import (
	"strconv"
	"strings"

	"github.com/inkdoc/inkdoc/internal/document"
)

const (
	maxHeadingLevel    = 3
	maxOrderedListItem = 9
	listPrefixLen      = 3 // "1. "
)

// Dispatch applies one markdown primitive to doc under the document
// lock, returning SUCCESS or the rejection Kind. Nothing is mutated in
// the chunk buffer itself — every primitive only enqueues pending edits,
// which take effect when the caller runs document.CommitVersion (the
// server does so after each successful command, the client replica once
// per broadcast block).
func Dispatch(doc *document.Document, version uint64, cmd Command) (Kind, error) {
	doc.Lock()
	defer doc.Unlock()

	switch cmd.Kind {
	case CmdInsert:
		return insertLocked(doc, version, cmd.Pos, []byte(cmd.Text))
	case CmdDelete:
		return deleteLocked(doc, version, cmd.Pos, cmd.Len)
	case CmdNewline:
		return newlineLocked(doc, version, cmd.Pos)
	case CmdHeading:
		return headingLocked(doc, version, cmd.Level, cmd.Pos)
	case CmdBold:
		return wrapRangeLocked(doc, version, cmd.Start, cmd.End, "**", "**")
	case CmdItalic:
		return wrapRangeLocked(doc, version, cmd.Start, cmd.End, "*", "*")
	case CmdCode:
		return wrapRangeLocked(doc, version, cmd.Start, cmd.End, "`", "`")
	case CmdLink:
		return linkLocked(doc, version, cmd.Start, cmd.End, cmd.URL)
	case CmdBlockquote:
		return linePrefixLocked(doc, version, cmd.Pos, "> ")
	case CmdUnorderedList:
		return linePrefixLocked(doc, version, cmd.Pos, "- ")
	case CmdOrderedList:
		return orderedListLocked(doc, version, cmd.Pos)
	case CmdHorizontalRule:
		return horizontalRuleLocked(doc, version, cmd.Pos)
	default:
		return fail(InvalidPosition)
	}
}

func checkVersion(doc *document.Document, version uint64) (Kind, error) {
	if version != doc.VersionLocked() {
		return fail(OutdatedVersion)
	}
	return Success, nil
}

func insertLocked(doc *document.Document, version uint64, pos int, text []byte) (Kind, error) {
	if pos > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	doc.EnqueueLocked(document.Edit{Pos: pos, Text: text})
	return Success, nil
}

func deleteLocked(doc *document.Document, version uint64, pos, length int) (Kind, error) {
	if pos > doc.LengthLocked() || length == 0 {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	doc.EnqueueLocked(document.Edit{Pos: pos, Len: length})
	return Success, nil
}

func newlineLocked(doc *document.Document, version uint64, pos int) (Kind, error) {
	if pos > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	pos = document.SnapSingle(pos, doc.DeletedRangesLocked())
	return insertLocked(doc, version, pos, []byte("\n"))
}

func headingLocked(doc *document.Document, version uint64, level, pos int) (Kind, error) {
	if pos > doc.LengthLocked() || level < 1 || level > maxHeadingLevel {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	adjusted := document.SnapSingle(pos, doc.DeletedRangesLocked())
	prefix := strings.Repeat("#", level) + " "
	if needsPrecedingNewlineLocked(doc, adjusted) {
		prefix = "\n" + prefix
	}
	return insertLocked(doc, version, adjusted, []byte(prefix))
}

func wrapRangeLocked(doc *document.Document, version uint64, start, end int, open, close string) (Kind, error) {
	if start > end || end > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	ranges := doc.DeletedRangesLocked()
	if document.FullyWithinDeleted(start, end, ranges) {
		return fail(DeletedPosition)
	}
	start, end = document.SnapRangeEndpoints(start, end, ranges)

	// Insert the closing marker first so the start offset stays valid.
	if k, err := insertLocked(doc, version, end, []byte(close)); err != nil {
		return k, err
	}
	if k, err := insertLocked(doc, version, start, []byte(open)); err != nil {
		return k, err
	}
	return Success, nil
}

func linkLocked(doc *document.Document, version uint64, start, end int, url string) (Kind, error) {
	if start > end || end > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	ranges := doc.DeletedRangesLocked()
	if document.FullyWithinDeleted(start, end, ranges) {
		return fail(DeletedPosition)
	}
	start, end = document.SnapRangeEndpoints(start, end, ranges)

	closing := "](" + url + ")"
	if k, err := insertLocked(doc, version, end, []byte(closing)); err != nil {
		return k, err
	}
	if k, err := insertLocked(doc, version, start, []byte("[")); err != nil {
		return k, err
	}
	return Success, nil
}

// linePrefixLocked implements blockquote and unordered_list: insert
// prefix at pos, prepending a newline unless pos is already at the
// start of a line.
func linePrefixLocked(doc *document.Document, version uint64, pos int, prefix string) (Kind, error) {
	if pos > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	adjusted := document.SnapSingle(pos, doc.DeletedRangesLocked())
	if needsPrecedingNewlineLocked(doc, adjusted) {
		prefix = "\n" + prefix
	}
	return insertLocked(doc, version, adjusted, []byte(prefix))
}

func horizontalRuleLocked(doc *document.Document, version uint64, pos int) (Kind, error) {
	if pos > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	adjusted := document.SnapSingle(pos, doc.DeletedRangesLocked())
	flat := doc.FlattenLocked()
	needPrefix := adjusted > 0 && flat[adjusted-1] != '\n'
	needSuffix := adjusted == doc.LengthLocked() || flat[adjusted] != '\n'

	text := "---"
	if needPrefix {
		text = "\n" + text
	}
	if needSuffix {
		text = text + "\n"
	}
	return insertLocked(doc, version, adjusted, []byte(text))
}

// orderedListLocked implements the one composite primitive: number
// assignment, adjacency rejection, and forward renumbering of
// subsequent list items (spec.md §4.2).
func orderedListLocked(doc *document.Document, version uint64, pos int) (Kind, error) {
	if pos > doc.LengthLocked() {
		return fail(InvalidPosition)
	}
	if k, err := checkVersion(doc, version); err != nil {
		return k, err
	}
	pos = document.SnapSingle(pos, doc.DeletedRangesLocked())

	text := string(doc.FlattenLocked())
	if isNearListPrefix(text, pos) {
		return fail(InvalidPosition)
	}

	lineStart := pos
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}

	number := 1
	scan := lineStart
	for {
		line := scan
		for line > 0 && text[line-1] != '\n' {
			line--
		}
		if isListPrefixAt(text, line) {
			number = int(text[line]-'0') + 1
			break
		}
		if line == 0 {
			break
		}
		scan = line - 1
	}
	if number > maxOrderedListItem {
		return fail(InvalidPosition)
	}

	prefix := strconv.Itoa(number) + ". "
	if needsPrecedingNewlineLocked(doc, pos) {
		prefix = "\n" + prefix
	}
	if k, err := insertLocked(doc, version, pos, []byte(prefix)); err != nil {
		return k, err
	}

	// The prefix insert above is only enqueued, not yet applied to the
	// chunk buffer — a re-flatten here still observes the pre-version
	// text. Positions for the renumbering walk below are therefore
	// still expressed in the same start-of-version coordinate space as
	// every other pending edit this tick, which is exactly what
	// document.CommitVersion expects when it later applies this
	// version's deletes and offset-adjusted inserts.
	text = string(doc.FlattenLocked())

	cursor := pos + len(prefix)
	renumber := number + 1
	length := doc.LengthLocked()

	for renumber <= maxOrderedListItem && cursor < length {
		lineEnd := cursor
		for lineEnd < length && text[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd >= length {
			break
		}
		nextLine := lineEnd + 1
		if nextLine+2 >= length {
			break
		}
		if !isListPrefixAt(text, nextLine) {
			break
		}

		if k, err := deleteLocked(doc, doc.VersionLocked(), nextLine, listPrefixLen); err != nil {
			return k, err
		}
		newPrefix := strconv.Itoa(renumber) + ". "
		if k, err := insertLocked(doc, doc.VersionLocked(), nextLine, []byte(newPrefix)); err != nil {
			return k, err
		}

		renumber++
		cursor = nextLine + len(newPrefix)
	}

	return Success, nil
}

func isListPrefixAt(text string, i int) bool {
	return i+2 < len(text) && isDigit(text[i]) && text[i+1] == '.' && text[i+2] == ' '
}

func isNearListPrefix(text string, pos int) bool {
	if pos >= listPrefixLen && isDigit(text[pos-listPrefixLen]) &&
		text[pos-listPrefixLen+1] == '.' && text[pos-listPrefixLen+2] == ' ' {
		return true
	}
	if pos+listPrefixLen-1 < len(text) && isDigit(text[pos]) &&
		text[pos+1] == '.' && text[pos+2] == ' ' {
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func needsPrecedingNewlineLocked(doc *document.Document, pos int) bool {
	if pos == 0 {
		return false
	}
	flat := doc.FlattenLocked()
	return flat[pos-1] != '\n'
}
