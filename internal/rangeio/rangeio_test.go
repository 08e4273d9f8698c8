package rangeio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestBytesReaderRanges(t *testing.T) {
	r := NewBytesReader([]byte("hello world"))

	got, err := r.ReadRange(0, 5)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}

	got, err = r.ReadRange(6, 11)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("got %q, want %q", got, "world")
	}

	if r.Size() != 11 {
		t.Errorf("Size() = %d, want 11", r.Size())
	}
}

func TestBytesReaderOutOfBounds(t *testing.T) {
	r := NewBytesReader([]byte("abc"))
	cases := []struct{ start, end int64 }{
		{-1, 2},
		{0, 4},
		{2, 1},
		{5, 6},
	}
	for _, c := range cases {
		if _, err := r.ReadRange(c.start, c.end); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("ReadRange(%d, %d): got %v, want ErrOutOfBounds", c.start, c.end, err)
		}
	}
}

func TestBytesReaderCopies(t *testing.T) {
	data := []byte("immutable")
	r := NewBytesReader(data)
	got, err := r.ReadRange(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 'X'
	again, _ := r.ReadRange(0, 4)
	if string(again) != "immu" {
		t.Errorf("source mutated through returned slice: %q", again)
	}
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.ReadRange(3, 7)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "3456" {
		t.Errorf("got %q, want %q", got, "3456")
	}
	if r.Size() != 10 {
		t.Errorf("Size() = %d, want 10", r.Size())
	}
}

func TestReadRangeAsTextDecodesLatin1(t *testing.T) {
	// "café" in ISO-8859-1: the é is a lone 0xE9 byte.
	r := NewBytesReader([]byte{'c', 'a', 'f', 0xE9})
	got, err := r.ReadRangeAsText(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != "café" {
		t.Errorf("got %q, want %q", got, "café")
	}
}

func TestSectionReaderStreams(t *testing.T) {
	data := make([]byte, 1<<20)
	for i := range data {
		data[i] = byte(i % 251)
	}
	sr := NewSectionReader(NewBytesReader(data), 100, int64(len(data))-100)
	got, err := io.ReadAll(sr)
	if err != nil {
		t.Fatal(err)
	}
	want := data[100 : len(data)-100]
	if len(got) != len(want) {
		t.Fatalf("read %d bytes, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
}
