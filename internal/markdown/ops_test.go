package markdown

import (
	"testing"

	"github.com/inkdoc/inkdoc/internal/document"
)

func seed(t *testing.T, d *document.Document, text string) {
	t.Helper()
	d.Lock()
	d.ApplyInsertLocked(0, []byte(text))
	d.Unlock()
	d.CommitVersion()
}

func flat(t *testing.T, d *document.Document) string {
	t.Helper()
	return string(d.Flatten())
}

func TestInsertSuccessAndCommit(t *testing.T) {
	d := document.New()
	k, err := Dispatch(d, 0, Command{Kind: CmdInsert, Pos: 0, Text: "Hello"})
	if k != Success || err != nil {
		t.Fatalf("insert = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "Hello" {
		t.Fatalf("flatten = %q, want %q", got, "Hello")
	}
	if d.Version() != 1 {
		t.Fatalf("version = %d, want 1", d.Version())
	}
}

func TestInsertInvalidPositionBeyondLength(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	k, err := Dispatch(d, d.Version(), Command{Kind: CmdInsert, Pos: 99, Text: "x"})
	if k != InvalidPosition || err == nil {
		t.Fatalf("insert = %v, %v, want InvalidPosition", k, err)
	}
}

func TestOutdatedVersionRejectedBeforeApplying(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	k, err := Dispatch(d, d.Version()+1, Command{Kind: CmdInsert, Pos: 0, Text: "x"})
	if k != OutdatedVersion || err == nil {
		t.Fatalf("insert = %v, %v, want OutdatedVersion", k, err)
	}
}

// Position validity is checked before version: an invalid position with a
// stale version still reports INVALID_POSITION, not OUTDATED_VERSION.
func TestInvalidPositionCheckedBeforeVersion(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	k, err := Dispatch(d, d.Version()+1, Command{Kind: CmdInsert, Pos: 99, Text: "x"})
	if k != InvalidPosition || err == nil {
		t.Fatalf("insert = %v, %v, want InvalidPosition", k, err)
	}
}

func TestDeleteZeroLengthRejected(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	k, err := Dispatch(d, d.Version(), Command{Kind: CmdDelete, Pos: 0, Len: 0})
	if k != InvalidPosition || err == nil {
		t.Fatalf("delete = %v, %v, want InvalidPosition", k, err)
	}
}

// Scenario: INSERT 0 Hello then BOLD 0 5 -> "**Hello**", length 9.
func TestBoldWrapsRange(t *testing.T) {
	d := document.New()
	seed(t, d, "Hello")

	k, err := Dispatch(d, d.Version(), Command{Kind: CmdBold, Start: 0, End: 5})
	if k != Success || err != nil {
		t.Fatalf("bold = %v, %v", k, err)
	}
	d.CommitVersion()

	if got := flat(t, d); got != "**Hello**" {
		t.Fatalf("flatten = %q, want %q", got, "**Hello**")
	}
	if d.Length() != 9 {
		t.Fatalf("length = %d, want 9", d.Length())
	}
}

func TestItalicAndCodeWrapRange(t *testing.T) {
	d := document.New()
	seed(t, d, "hi")

	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdItalic, Start: 0, End: 2}); k != Success || err != nil {
		t.Fatalf("italic = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "*hi*" {
		t.Fatalf("flatten = %q, want %q", got, "*hi*")
	}

	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdCode, Start: 1, End: 3}); k != Success || err != nil {
		t.Fatalf("code = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "*`hi`*" {
		t.Fatalf("flatten = %q, want %q", got, "*`hi`*")
	}
}

func TestLinkWrapsWithURL(t *testing.T) {
	d := document.New()
	seed(t, d, "docs")

	k, err := Dispatch(d, d.Version(), Command{Kind: CmdLink, Start: 0, End: 4, URL: "https://example.com"})
	if k != Success || err != nil {
		t.Fatalf("link = %v, %v", k, err)
	}
	d.CommitVersion()

	want := "[docs](https://example.com)"
	if got := flat(t, d); got != want {
		t.Fatalf("flatten = %q, want %q", got, want)
	}
}

// Scenario: DEL 0 3 followed by BOLD 1 2 on "abcdef" -> DELETED_POSITION,
// commit applies only the delete.
func TestRangeFullyInsideDeleteIsRejected(t *testing.T) {
	d := document.New()
	seed(t, d, "abcdef")

	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdDelete, Pos: 0, Len: 3}); k != Success || err != nil {
		t.Fatalf("delete = %v, %v", k, err)
	}
	k, err := Dispatch(d, d.Version(), Command{Kind: CmdBold, Start: 1, End: 2})
	if k != DeletedPosition || err == nil {
		t.Fatalf("bold = %v, %v, want DeletedPosition", k, err)
	}

	d.CommitVersion()
	if got := flat(t, d); got != "def" {
		t.Fatalf("flatten = %q, want %q (only the delete should apply)", got, "def")
	}
}

func TestSinglePositionSnapsToDeletedRangeStart(t *testing.T) {
	d := document.New()
	seed(t, d, "abcdef")

	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdDelete, Pos: 1, Len: 3}); k != Success || err != nil {
		t.Fatalf("delete = %v, %v", k, err)
	}
	// pos=2 lies inside the pending delete [1,4); newline should snap to 1.
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdNewline, Pos: 2}); k != Success || err != nil {
		t.Fatalf("newline = %v, %v", k, err)
	}
	d.CommitVersion()

	// Delete "bcd" from "abcdef" -> "aef"; newline enqueued at snapped pos 1.
	if got := flat(t, d); got != "a\nef" {
		t.Fatalf("flatten = %q, want %q", got, "a\nef")
	}
}

func TestRangeSnapsToNearerEdgeOfDeletedRange(t *testing.T) {
	d := document.New()
	seed(t, d, "0123456789")

	// Delete [2,8).
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdDelete, Pos: 2, Len: 6}); k != Success || err != nil {
		t.Fatalf("delete = %v, %v", k, err)
	}
	// Range [3,5) is not fully inside... wait it is (3>=2, 5<=8) -> rejected.
	k, err := Dispatch(d, d.Version(), Command{Kind: CmdBold, Start: 3, End: 5})
	if k != DeletedPosition || err == nil {
		t.Fatalf("bold = %v, %v, want DeletedPosition", k, err)
	}

	// Range [0,7) straddles the deleted range on one side only: start=0 is
	// outside [2,8), end=7 is inside and nearer to 8 (distance 1) than to 2
	// (distance 5), so end snaps to 8.
	k, err = Dispatch(d, d.Version(), Command{Kind: CmdBold, Start: 0, End: 7})
	if k != Success || err != nil {
		t.Fatalf("bold = %v, %v", k, err)
	}
	d.CommitVersion()

	// After the delete: "01" + "89" = "0189" (length 4). The closing "**"
	// was enqueued at pre-delete position 8, which together with the
	// preceding insert's offset lands past the post-delete length; an
	// insert past the current length always lands at the tail, so the
	// close marker ends up after "89" rather than before it.
	if got := flat(t, d); got != "**0189**" {
		t.Fatalf("flatten = %q, want %q", got, "**0189**")
	}
}

func TestHeadingRejectsInvalidLevel(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHeading, Level: 4, Pos: 0}); k != InvalidPosition || err == nil {
		t.Fatalf("heading = %v, %v, want InvalidPosition", k, err)
	}
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHeading, Level: 0, Pos: 0}); k != InvalidPosition || err == nil {
		t.Fatalf("heading = %v, %v, want InvalidPosition", k, err)
	}
}

func TestHeadingInsertsPrefixAtLineStart(t *testing.T) {
	d := document.New()
	seed(t, d, "title")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHeading, Level: 2, Pos: 0}); k != Success || err != nil {
		t.Fatalf("heading = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "## title" {
		t.Fatalf("flatten = %q, want %q", got, "## title")
	}
}

func TestHeadingMidLineGetsPrecedingNewline(t *testing.T) {
	d := document.New()
	seed(t, d, "abcdef")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHeading, Level: 1, Pos: 3}); k != Success || err != nil {
		t.Fatalf("heading = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "abc\n# def" {
		t.Fatalf("flatten = %q, want %q", got, "abc\n# def")
	}
}

func TestBlockquoteAndUnorderedListPrefixLines(t *testing.T) {
	d := document.New()
	seed(t, d, "note")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdBlockquote, Pos: 0}); k != Success || err != nil {
		t.Fatalf("blockquote = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "> note" {
		t.Fatalf("flatten = %q, want %q", got, "> note")
	}

	d2 := document.New()
	seed(t, d2, "item")
	if k, err := Dispatch(d2, d2.Version(), Command{Kind: CmdUnorderedList, Pos: 0}); k != Success || err != nil {
		t.Fatalf("unordered_list = %v, %v", k, err)
	}
	d2.CommitVersion()
	if got := flat(t, d2); got != "- item" {
		t.Fatalf("flatten = %q, want %q", got, "- item")
	}
}

func TestHorizontalRuleAddsSurroundingNewlinesAsNeeded(t *testing.T) {
	d := document.New()
	seed(t, d, "abcdef")
	// pos=3 is mid-line on both sides -> needs both a leading and trailing \n.
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHorizontalRule, Pos: 3}); k != Success || err != nil {
		t.Fatalf("hr = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "abc\n---\ndef" {
		t.Fatalf("flatten = %q, want %q", got, "abc\n---\ndef")
	}
}

func TestHorizontalRuleAtLineBoundaryOmitsRedundantNewline(t *testing.T) {
	d := document.New()
	seed(t, d, "abc\ndef")
	// pos=4 is already right after a \n and right before 'd' (not a \n), so
	// only a trailing newline is needed.
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdHorizontalRule, Pos: 4}); k != Success || err != nil {
		t.Fatalf("hr = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "abc\n---\ndef" {
		t.Fatalf("flatten = %q, want %q", got, "abc\n---\ndef")
	}
}

func TestOrderedListFirstItemStartsAtOne(t *testing.T) {
	d := document.New()
	seed(t, d, "apple")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdOrderedList, Pos: 0}); k != Success || err != nil {
		t.Fatalf("ordered_list = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "1. apple" {
		t.Fatalf("flatten = %q, want %q", got, "1. apple")
	}
}

func TestOrderedListAdjacentToExistingPrefixRejected(t *testing.T) {
	d := document.New()
	seed(t, d, "1. apple")
	// pos=3 sits immediately after "1. " -- adjacency check must reject.
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdOrderedList, Pos: 3}); k != InvalidPosition || err == nil {
		t.Fatalf("ordered_list = %v, %v, want InvalidPosition", k, err)
	}
}

func TestOrderedListSecondItemContinuesNumbering(t *testing.T) {
	d := document.New()
	seed(t, d, "1. apple\nbanana")
	lineStart := len("1. apple\n")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdOrderedList, Pos: lineStart}); k != Success || err != nil {
		t.Fatalf("ordered_list = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "1. apple\n2. banana" {
		t.Fatalf("flatten = %q, want %q", got, "1. apple\n2. banana")
	}
}

// Converting a plain line sandwiched between two list items into a new
// list item renumbers every item that follows it.
func TestOrderedListInsertionRenumbersFollowingItems(t *testing.T) {
	d := document.New()
	seed(t, d, "1. a\nplain\n2. b")

	plainLineStart := len("1. a\n")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdOrderedList, Pos: plainLineStart}); k != Success || err != nil {
		t.Fatalf("ordered_list = %v, %v", k, err)
	}
	d.CommitVersion()

	want := "1. a\n2. plain\n3. b"
	if got := flat(t, d); got != want {
		t.Fatalf("flatten = %q, want %q", got, want)
	}
}

// Ordered list with existing item 9 at the scanning frontier is rejected:
// the new item's own number would have to exceed the maximum.
func TestOrderedListRejectedWhenNumberWouldExceedNine(t *testing.T) {
	d := document.New()
	lines := "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g\n8. h\n9. i\nplain"
	seed(t, d, lines)

	plainLineStart := len("1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g\n8. h\n9. i\n")
	k, err := Dispatch(d, d.Version(), Command{Kind: CmdOrderedList, Pos: plainLineStart})
	if k != InvalidPosition || err == nil {
		t.Fatalf("ordered_list = %v, %v, want InvalidPosition", k, err)
	}
}

func TestNewlineAtEndOfDocument(t *testing.T) {
	d := document.New()
	seed(t, d, "abc")
	if k, err := Dispatch(d, d.Version(), Command{Kind: CmdNewline, Pos: 3}); k != Success || err != nil {
		t.Fatalf("newline = %v, %v", k, err)
	}
	d.CommitVersion()
	if got := flat(t, d); got != "abc\n" {
		t.Fatalf("flatten = %q, want %q", got, "abc\n")
	}
}
