// Package zip builds in-memory zip archives of generated assets.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Asset is one file destined for an archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets packs the assets into a zip archive. Entries are written in
// filename order so identical inputs produce identical archives. Names
// without an extension get one derived from the MIME type, and duplicate
// names are suffixed with a counter.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	sorted := make([]Asset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int)
	for _, asset := range sorted {
		name := entryName(asset)
		if n := seen[name]; n > 0 {
			ext := extOf(name)
			base := strings.TrimSuffix(name, ext)
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		seen[entryName(asset)]++

		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("zip: create entry %s: %w", name, err)
		}
		if _, err := f.Write(asset.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("zip: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}

func entryName(asset Asset) string {
	name := asset.Filename
	if name == "" {
		name = "asset"
	}
	if extOf(name) == "" {
		name += extensionForMIME(asset.MIME)
	}
	return name
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func extensionForMIME(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mimeType, "image/png"):
		return ".png"
	case strings.HasPrefix(mimeType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(mimeType, "video/mp4"):
		return ".mp4"
	case strings.HasPrefix(mimeType, "text/html"):
		return ".html"
	default:
		return ".bin"
	}
}
