package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func readEntries(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string]string)
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestArchiveAssetsRoundTrip(t *testing.T) {
	archive, err := ArchiveAssets([]Asset{
		{Filename: "portrait.jpg", MIME: "image/jpeg", Data: []byte("jpg")},
		{Filename: "scene.mp4", MIME: "video/mp4", Data: []byte("mp4")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}

	entries := readEntries(t, archive)
	if entries["portrait.jpg"] != "jpg" || entries["scene.mp4"] != "mp4" {
		t.Fatalf("entries = %v", entries)
	}
}

func TestArchiveAssetsIsDeterministic(t *testing.T) {
	assets := []Asset{
		{Filename: "b.mp4", Data: []byte("b")},
		{Filename: "a.jpg", Data: []byte("a")},
	}
	first, err := ArchiveAssets(assets)
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	reversed := []Asset{assets[1], assets[0]}
	second, err := ArchiveAssets(reversed)
	if err != nil {
		t.Fatalf("ArchiveAssets reversed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("archives differ by input order")
	}
}

func TestArchiveAssetsNamesEntriesByMIME(t *testing.T) {
	archive, err := ArchiveAssets([]Asset{
		{Filename: "portrait", MIME: "image/jpeg", Data: []byte("x")},
		{Filename: "", MIME: "video/mp4", Data: []byte("y")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	entries := readEntries(t, archive)
	if _, ok := entries["portrait.jpg"]; !ok {
		t.Fatalf("missing portrait.jpg: %v", entries)
	}
	if _, ok := entries["asset.mp4"]; !ok {
		t.Fatalf("missing asset.mp4: %v", entries)
	}
}

func TestArchiveAssetsDeduplicatesNames(t *testing.T) {
	archive, err := ArchiveAssets([]Asset{
		{Filename: "a.jpg", Data: []byte("1")},
		{Filename: "a.jpg", Data: []byte("2")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	entries := readEntries(t, archive)
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2 distinct names", entries)
	}
	if _, ok := entries["a_1.jpg"]; !ok {
		t.Fatalf("dedup name missing: %v", entries)
	}
}
