package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// frameSource yields decoded frames in order; Next returns io.EOF after the
// last one.
type frameSource interface {
	Next() (image.Image, error)
	Close() error
}

// openSource opens a video file, or a directory of numbered still images.
func openSource(path string) (frameSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		return openImageDir(path)
	}
	return openVideo(path)
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

type imageDir struct {
	files []string
	next  int
}

func openImageDir(dir string) (*imageDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)
	return &imageDir{files: files}, nil
}

func (d *imageDir) Next() (image.Image, error) {
	if d.next >= len(d.files) {
		return nil, io.EOF
	}
	path := d.files[d.next]
	d.next++
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func (d *imageDir) Close() error { return nil }
