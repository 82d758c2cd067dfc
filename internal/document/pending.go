package document

// Edit is a pending insert or delete, not yet applied to the chunk list.
// Pos is expressed in the coordinate space of the document as of the
// start of the current version.
type Edit struct {
	Pos  int
	Text []byte // non-nil for inserts
	Len  int    // set for deletes
}

// IsDelete reports whether e is a delete edit.
func (e Edit) IsDelete() bool { return e.Text == nil }

// DeletedRange is a derived, on-demand structure describing the byte
// ranges removed by pending Delete edits of the current version. It is
// never persisted.
type DeletedRange struct {
	Start, End int
}

// DeletedRangesLocked builds the set of deleted ranges from the current
// pending list. Caller must hold the document lock for the snapshot to
// be consistent with other in-flight operations.
func (d *Document) DeletedRangesLocked() []DeletedRange {
	var ranges []DeletedRange
	for _, e := range d.pending {
		if e.IsDelete() {
			ranges = append(ranges, DeletedRange{Start: e.Pos, End: e.Pos + e.Len})
		}
	}
	return ranges
}

// SnapSingle moves pos to the start of any deleted range that strictly
// contains it.
func SnapSingle(pos int, ranges []DeletedRange) int {
	for _, r := range ranges {
		if pos >= r.Start && pos < r.End {
			return r.Start
		}
	}
	return pos
}

// FullyWithinDeleted reports whether [start, end) lies entirely inside
// some deleted range.
func FullyWithinDeleted(start, end int, ranges []DeletedRange) bool {
	for _, r := range ranges {
		if start >= r.Start && end <= r.End {
			return true
		}
	}
	return false
}

// SnapRangeEndpoints snaps each endpoint of [start, end) that falls
// strictly inside a deleted range to whichever edge of that range is
// closer (ties favor the start edge).
func SnapRangeEndpoints(start, end int, ranges []DeletedRange) (int, int) {
	for _, r := range ranges {
		if start >= r.Start && start < r.End {
			if start-r.Start <= r.End-start {
				start = r.Start
			} else {
				start = r.End
			}
		}
		if end >= r.Start && end < r.End {
			if end-r.Start <= r.End-end {
				end = r.Start
			} else {
				end = r.End
			}
		}
	}
	return start, end
}
