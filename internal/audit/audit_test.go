package audit

import "testing"

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndLoadHistory(t *testing.T) {
	s := testStore(t)

	if err := s.AppendVersion(1, []string{"EDIT alice INSERT 0 hi SUCCESS"}); err != nil {
		t.Fatalf("AppendVersion(1): %v", err)
	}
	if err := s.AppendVersion(2, []string{"EDIT bob DEL 0 1 SUCCESS", "EDIT carol NEWLINE 1 SUCCESS"}); err != nil {
		t.Fatalf("AppendVersion(2): %v", err)
	}

	history, err := s.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Version != 1 || len(history[0].Lines) != 1 {
		t.Fatalf("history[0] = %+v", history[0])
	}
	if history[1].Version != 2 || len(history[1].Lines) != 2 {
		t.Fatalf("history[1] = %+v", history[1])
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestAppendVersionIsIdempotentPerVersion(t *testing.T) {
	s := testStore(t)

	if err := s.AppendVersion(1, []string{"first"}); err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}
	if err := s.AppendVersion(1, []string{"replaced"}); err != nil {
		t.Fatalf("AppendVersion (re-write): %v", err)
	}

	history, err := s.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history) != 1 || len(history[0].Lines) != 1 || history[0].Lines[0] != "replaced" {
		t.Fatalf("history = %+v", history)
	}
}

func TestStoreSnapshotMetadata(t *testing.T) {
	s := testStore(t)

	if err := s.StoreSnapshot(5, 120); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}
	if err := s.StoreSnapshot(6, 130); err != nil {
		t.Fatalf("StoreSnapshot (update): %v", err)
	}
}
