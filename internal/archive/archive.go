package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrNoArtwork means the archive contained no usable image entries
var ErrNoArtwork = errors.New("no valid image files found in archive")

// Markers are the filename tokens used to classify archive images
type Markers struct {
	Main   string
	Mockup string
}

// DefaultMarkers matches the naming convention of common listing bundles
var DefaultMarkers = Markers{Main: "original", Mockup: "mockup"}

// Entry is one file extracted from the archive
type Entry struct {
	Name string
	Data []byte
}

// Bundle is the classified content of one listing archive
type Bundle struct {
	MainImage   Entry
	Mockups     []Entry
	ListingText string
}

// Open reads and classifies a listing archive from disk
func Open(path string, markers Markers) (*Bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	return classify(r.File, markers)
}

func classify(files []*zip.File, markers Markers) (*Bundle, error) {
	var images []Entry
	listingText := ""

	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}

		switch {
		case isImage(f.Name):
			data, err := readEntry(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			images = append(images, Entry{Name: f.Name, Data: data})
		case listingText == "" && strings.HasSuffix(strings.ToLower(f.Name), ".txt"):
			data, err := readEntry(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			listingText = string(data)
		}
	}

	main, mockups, err := Classify(images, markers)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		MainImage:   main,
		Mockups:     mockups,
		ListingText: listingText,
	}, nil
}

// Classify partitions archive images into the main artwork and mockups.
// The main image is the first whose name contains the main marker, else
// the first not naming the mockup marker, else simply the first image.
func Classify(images []Entry, markers Markers) (Entry, []Entry, error) {
	if len(images) == 0 {
		return Entry{}, nil, ErrNoArtwork
	}
	if markers.Main == "" {
		markers.Main = DefaultMarkers.Main
	}
	if markers.Mockup == "" {
		markers.Mockup = DefaultMarkers.Mockup
	}

	mainIdx := -1
	for i, img := range images {
		if strings.Contains(strings.ToLower(img.Name), markers.Main) {
			mainIdx = i
			break
		}
	}
	if mainIdx == -1 {
		for i, img := range images {
			if !strings.Contains(strings.ToLower(img.Name), markers.Mockup) {
				mainIdx = i
				break
			}
		}
	}
	if mainIdx == -1 {
		mainIdx = 0
	}

	mockups := make([]Entry, 0, len(images)-1)
	for i, img := range images {
		if i != mainIdx {
			mockups = append(mockups, img)
		}
	}

	return images[mainIdx], mockups, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
