package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/testutil"
)

// threeMessageMbox has deliberately out-of-order dates so the newest-first
// sort is observable: file order is jan, mar, feb.
func threeMessageMbox() []byte {
	return testutil.BuildMbox(
		testutil.MboxMessage{
			Envelope: testutil.Envelope("a@example.com"),
			Headers:  "From: a@example.com\nSubject: january\nDate: Mon, 1 Jan 2024 10:00:00 +0000",
			Body:     "first body",
		},
		testutil.MboxMessage{
			Envelope: testutil.Envelope("b@example.com"),
			Headers:  "From: b@example.com\nSubject: march\nDate: Fri, 1 Mar 2024 10:00:00 +0000",
			Body:     "second body",
		},
		testutil.MboxMessage{
			Envelope: testutil.Envelope("c@example.com"),
			Headers:  "From: c@example.com\nSubject: february\nDate: Thu, 1 Feb 2024 10:00:00 +0000",
			Body:     "third body",
		},
	)
}

func newTestStore(t *testing.T, maxEntries int) (*Store, *MailFile) {
	t.Helper()
	st := New(Options{CacheMaxEntries: maxEntries})
	f, err := st.AddFile("archive", "archive.mbox", "mbox", rangeio.NewBytesReader(threeMessageMbox()))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	return st, f
}

func TestAddFileSortsNewestFirstAndRenumbers(t *testing.T) {
	_, f := newTestStore(t, 10)

	boundaries := f.Boundaries()
	if len(boundaries) != 3 {
		t.Fatalf("got %d boundaries, want 3", len(boundaries))
	}
	var subjects []string
	for i, b := range boundaries {
		if b.Index != i {
			t.Errorf("boundary at position %d has Index %d", i, b.Index)
		}
		subjects = append(subjects, b.Preview.Subject)
	}
	testutil.AssertEqualSlices(t, subjects, "march", "february", "january")
}

func TestLoadMessageDecodesByDisplayIndex(t *testing.T) {
	st, f := newTestStore(t, 10)

	msg, err := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true})
	if err != nil {
		t.Fatalf("LoadMessage: %v", err)
	}
	if msg.Subject != "march" {
		t.Errorf("index 0 decoded %q, want the newest message", msg.Subject)
	}
	if msg.Body == "" {
		t.Error("body not decoded")
	}
}

func TestLoadMessageIsReferentiallyStable(t *testing.T) {
	st, f := newTestStore(t, 10)

	first, err := st.LoadMessage(f.ID, 1, LoadOptions{Cache: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.LoadMessage(f.ID, 1, LoadOptions{Cache: true})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cached load returned a different pointer")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached load not content-equal:\n%s", diff)
	}
}

func TestCacheBoundAndLRUVictim(t *testing.T) {
	st, f := newTestStore(t, 2)

	m0, _ := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true})
	m1, _ := st.LoadMessage(f.ID, 1, LoadOptions{Cache: true})
	if n := st.CachedCount(f.ID); n != 2 {
		t.Fatalf("cached count = %d, want 2", n)
	}

	// Touch 0 so 1 becomes the LRU victim, then insert 2.
	if m, _ := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true}); m != m0 {
		t.Fatal("hit did not return the cached entry")
	}
	if _, err := st.LoadMessage(f.ID, 2, LoadOptions{Cache: true}); err != nil {
		t.Fatal(err)
	}
	if n := st.CachedCount(f.ID); n != 2 {
		t.Errorf("cached count = %d, want 2 after eviction", n)
	}

	// 0 must still be cached (same pointer); 1 must have been evicted.
	if m, _ := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true}); m != m0 {
		t.Error("recently-touched entry was evicted")
	}
	if m, _ := st.LoadMessage(f.ID, 1, LoadOptions{Cache: true}); m == m1 {
		t.Error("LRU entry was not evicted")
	}
}

func TestCacheNeverExceedsBound(t *testing.T) {
	st, f := newTestStore(t, 2)
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			if _, err := st.LoadMessage(f.ID, i, LoadOptions{Cache: true}); err != nil {
				t.Fatal(err)
			}
			if n := st.CachedCount(f.ID); n > 2 {
				t.Fatalf("cached count %d exceeds bound", n)
			}
		}
	}
}

func TestBypassModeDoesNotTouchCache(t *testing.T) {
	st, f := newTestStore(t, 10)
	if _, err := st.LoadMessage(f.ID, 0, LoadOptions{Cache: false}); err != nil {
		t.Fatal(err)
	}
	if n := st.CachedCount(f.ID); n != 0 {
		t.Errorf("bypass load cached %d entries", n)
	}
}

func TestLoadMessageErrors(t *testing.T) {
	st, f := newTestStore(t, 10)

	if _, err := st.LoadMessage("no-such-file", 0, LoadOptions{Cache: true}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("unknown file: got %v, want ErrNotInitialized", err)
	}
	if _, err := st.LoadMessage(f.ID, 99, LoadOptions{Cache: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("out of range: got %v, want ErrNotFound", err)
	}
	if _, err := st.LoadMessage(f.ID, -1, LoadOptions{Cache: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("negative index: got %v, want ErrNotFound", err)
	}
}

func TestEmptySourceIsNotInitialized(t *testing.T) {
	st := New(Options{})
	f, err := st.AddFile("empty", "empty.mbox", "mbox", rangeio.NewBytesReader(nil))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if f.MessageCount() != 0 {
		t.Fatalf("message count = %d, want 0", f.MessageCount())
	}
	if _, err := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
}

func TestAddFileDisambiguatesNames(t *testing.T) {
	st := New(Options{})
	var names []string
	for i := 0; i < 3; i++ {
		f, err := st.AddFile("Archive", fmt.Sprintf("a%d.mbox", i), "mbox", rangeio.NewBytesReader(threeMessageMbox()))
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, f.DisplayName)
	}
	testutil.AssertEqualSlices(t, names, "Archive", "Archive (1)", "Archive (2)")
}

func TestRenameCaseInsensitiveCollision(t *testing.T) {
	st := New(Options{})
	data := threeMessageMbox()
	f1, _ := st.AddFile("Archive", "a.mbox", "mbox", rangeio.NewBytesReader(data))
	f2, _ := st.AddFile("Other", "b.mbox", "mbox", rangeio.NewBytesReader(data))

	got, err := st.Rename(f2.ID, "archive")
	if err != nil {
		t.Fatal(err)
	}
	if got != "archive (1)" {
		t.Errorf("Rename = %q, want %q", got, "archive (1)")
	}

	// Renaming to your own current name is not a collision.
	self, err := st.Rename(f1.ID, "Archive")
	if err != nil {
		t.Fatal(err)
	}
	if self != "Archive" {
		t.Errorf("self-rename = %q", self)
	}
}

func TestRemoveDestroysFile(t *testing.T) {
	st, f := newTestStore(t, 10)
	if _, err := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.Remove(f.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadMessage(f.ID, 0, LoadOptions{Cache: true}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized after removal", err)
	}
	if err := st.Remove(f.ID); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("double remove: got %v, want ErrNotInitialized", err)
	}
}
