package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	assets := []Asset{
		{Filename: "frame_01.png", Data: []byte("one")},
		{Filename: "frame_02.png", Data: []byte("two")},
	}
	if err := Write(&buf, assets, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("archive unreadable: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != assets[i].Filename {
			t.Fatalf("entry %d = %q, want %q", i, f.Name, assets[i].Filename)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != string(assets[i].Data) {
			t.Fatalf("%s content = %q", f.Name, data)
		}
	}
}

func TestWriteRejectsDuplicates(t *testing.T) {
	err := Write(io.Discard, []Asset{{Filename: "a"}, {Filename: "a"}}, time.Now())
	if err == nil {
		t.Fatal("expected duplicate entry error")
	}
}
