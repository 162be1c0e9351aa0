package oplog

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "oplog")
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	seq1, err := l.Append(ctx, OpUpsertDocument, []byte(`{"id":"1"}`))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	seq2, err := l.Append(ctx, OpUpsertDocument, []byte(`{"id":"2"}`))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seq1 != 1 || seq2 != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", seq1, seq2)
	}
	if l.LastSeq() != 2 {
		t.Errorf("LastSeq() = %d, want 2", l.LastSeq())
	}
}

func TestReadSinceReturnsOnlyNewer(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, OpUpsertDocument, []byte(`{}`)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := l.ReadSince(ctx, 3)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Seq != 4 || entries[1].Seq != 5 {
		t.Errorf("entries = %d, %d, want 4, 5", entries[0].Seq, entries[1].Seq)
	}
}

func TestTruncateThrough(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, OpUpsertDocument, []byte(`{}`)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := l.TruncateThrough(ctx, 3); err != nil {
		t.Fatalf("TruncateThrough: %v", err)
	}

	entries, err := l.ReadSince(ctx, 0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Seq != 4 {
		t.Errorf("entries[0].Seq = %d, want 4", entries[0].Seq)
	}
}

func TestReopenPreservesLastSeq(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "oplog")
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if _, err := l.Append(ctx, OpUpsertDocument, []byte(`{}`)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append(ctx, OpUpsertDocument, []byte(`{}`)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.LastSeq() != 2 {
		t.Errorf("LastSeq() after reopen = %d, want 2", reopened.LastSeq())
	}

	seq, err := reopened.Append(ctx, OpUpsertDocument, []byte(`{}`))
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if seq != 3 {
		t.Errorf("seq after reopen = %d, want 3", seq)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "oplog")
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := l.Append(context.Background(), OpUpsertDocument, []byte(`{}`)); err == nil {
		t.Error("expected error appending to a closed log")
	}
}
