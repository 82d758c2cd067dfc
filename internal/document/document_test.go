package document

import "testing"

func flatten(t *testing.T, d *Document) string {
	t.Helper()
	return string(d.Flatten())
}

func TestInsertAtZeroOnEmptyCreatesOneChunk(t *testing.T) {
	d := New()
	d.Lock()
	d.ApplyInsertLocked(0, []byte("hello"))
	d.Unlock()

	if got := flatten(t, d); got != "hello" {
		t.Fatalf("flatten = %q, want %q", got, "hello")
	}
	if d.head != d.tail || d.head == nil {
		t.Fatalf("expected exactly one chunk")
	}
}

func TestInsertIntoFullChunkDoesNotSplitIt(t *testing.T) {
	d := New()
	full := make([]byte, ChunkSize)
	for i := range full {
		full[i] = 'a'
	}
	d.Lock()
	d.ApplyInsertLocked(0, full)
	firstChunkLenAfterFill := d.head.length
	d.ApplyInsertLocked(d.length, []byte("z"))
	d.Unlock()

	if firstChunkLenAfterFill != ChunkSize {
		t.Fatalf("first chunk length after fill = %d, want %d", firstChunkLenAfterFill, ChunkSize)
	}
	if d.head.length != ChunkSize {
		t.Fatalf("original full chunk was split: length = %d, want unchanged %d", d.head.length, ChunkSize)
	}
	if got := flatten(t, d); got != string(full)+"z" {
		t.Fatalf("flatten mismatch after overflow insert")
	}
}

func TestDeleteEntireDocumentEmptiesChunkList(t *testing.T) {
	d := New()
	d.Lock()
	d.ApplyInsertLocked(0, []byte("hello world"))
	d.ApplyDeleteLocked(0, len("hello world"))
	d.Unlock()

	if d.head != nil || d.tail != nil {
		t.Fatalf("expected head and tail nil after deleting everything")
	}
	if d.length != 0 {
		t.Fatalf("expected length 0, got %d", d.length)
	}
}

func TestCommitVersionClearsPendingAndBumpsVersion(t *testing.T) {
	d := New()
	d.Lock()
	d.EnqueueLocked(Edit{Pos: 0, Text: []byte("abc")})
	d.CommitVersionLocked()
	d.Unlock()

	if d.Version() != 1 {
		t.Fatalf("version = %d, want 1", d.Version())
	}
	if len(d.pending) != 0 {
		t.Fatalf("expected pending cleared")
	}
	if got := flatten(t, d); got != "abc" {
		t.Fatalf("flatten = %q, want %q", got, "abc")
	}
}

func TestCommitAppliesDeletesThenSortedInserts(t *testing.T) {
	d := New()
	d.Lock()
	d.ApplyInsertLocked(0, []byte("abcdef"))
	d.Unlock()
	d.CommitVersion()

	d.Lock()
	// Enqueue an insert at 4 and then at 0, verifying the insert order
	// is resolved by position, not enqueue order.
	d.EnqueueLocked(Edit{Pos: 4, Text: []byte("Y")})
	d.EnqueueLocked(Edit{Pos: 0, Text: []byte("X")})
	d.EnqueueLocked(Edit{Pos: 1, Len: 1}) // delete "b"
	d.CommitVersionLocked()
	d.Unlock()

	// Original: a b c d e f
	// Delete pos=1 len=1 (against pre-commit coordinates): a c d e f
	// Insert "X" at 0 (pre-commit coords, offset 0): X a c d e f
	// Insert "Y" at 4+offset(1)=5 (after X shifted everything right by 1): X a c d e Y f
	want := "XacdeYf"
	if got := flatten(t, d); got != want {
		t.Fatalf("flatten = %q, want %q", got, want)
	}
}

func TestLengthMatchesSumOfChunkLengths(t *testing.T) {
	d := New()
	d.Lock()
	d.ApplyInsertLocked(0, []byte("a longer piece of text spanning more than one chunk boundary maybe"))
	d.Unlock()

	sum := 0
	for c := d.head; c != nil; c = c.next {
		sum += c.length
	}
	if sum != d.length {
		t.Fatalf("sum of chunk lengths = %d, document length = %d", sum, d.length)
	}
	if len(d.Flatten()) != d.length {
		t.Fatalf("flatten length = %d, document length = %d", len(d.Flatten()), d.length)
	}
}
