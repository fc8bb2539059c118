package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestWriteAssets(t *testing.T) {
	var buf bytes.Buffer
	err := WriteAssets(&buf, []Asset{
		{Filename: "headshot.png", Data: []byte("one")},
		{Filename: "headshot.png", Data: []byte("two")},
	})
	if err != nil {
		t.Fatalf("WriteAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	names := []string{zr.File[0].Name, zr.File[1].Name}
	if names[0] != "headshot.png" || names[1] != "1-headshot.png" {
		t.Fatalf("names = %v", names)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "two" {
		t.Fatalf("second entry = %q", data)
	}
}
