// Package raster supplies page images for scan archives. PDF rasterization
// is an external concern; the shipped provider reads a ZIP archive of page
// images (PNG or JPEG), one page per entry, ordered by entry name.
package raster

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"sort"
	"strings"
)

// ErrUnreadableArchive indicates scan bytes that cannot be opened as a page
// archive at all.
var ErrUnreadableArchive = errors.New("unreadable scan archive")

// Page is one rasterized sheet. PageNumber is 1-indexed.
type Page struct {
	PageNumber int
	Image      image.Image
}

// Provider yields the pages of a scan document.
type Provider interface {
	// CountPages returns the page count without decoding the images.
	CountPages(scan []byte) (int, error)
	// Pages decodes every page in order. A page whose image cannot be
	// decoded is returned with a nil Image and its error in errs at the
	// same index, so callers can isolate per-page failures.
	Pages(scan []byte) ([]Page, []error, error)
}

// ZipProvider reads ZIP archives of page images.
type ZipProvider struct{}

// NewZipProvider returns the standard archive-of-images provider.
func NewZipProvider() *ZipProvider {
	return &ZipProvider{}
}

func (p *ZipProvider) CountPages(scan []byte) (int, error) {
	entries, err := imageEntries(scan)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (p *ZipProvider) Pages(scan []byte) ([]Page, []error, error) {
	entries, err := imageEntries(scan)
	if err != nil {
		return nil, nil, err
	}

	pages := make([]Page, len(entries))
	errs := make([]error, len(entries))
	for i, entry := range entries {
		pages[i].PageNumber = i + 1
		rc, err := entry.Open()
		if err != nil {
			errs[i] = fmt.Errorf("open page %d (%s): %w", i+1, entry.Name, err)
			continue
		}
		img, _, err := image.Decode(rc)
		rc.Close()
		if err != nil {
			errs[i] = fmt.Errorf("decode page %d (%s): %w", i+1, entry.Name, err)
			continue
		}
		pages[i].Image = img
	}
	return pages, errs, nil
}

// imageEntries lists the archive's image entries sorted by name. Directories
// and non-image files are skipped; an archive with no image entries is
// unreadable.
func imageEntries(scan []byte) ([]*zip.File, error) {
	reader, err := zip.NewReader(bytes.NewReader(scan), int64(len(scan)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableArchive, err)
	}

	var entries []*zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".png", ".jpg", ".jpeg":
			entries = append(entries, f)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no page images in archive", ErrUnreadableArchive)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
