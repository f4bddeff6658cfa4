package raster_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/ctroy978/edmpc/internal/raster"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestZipProviderPages(t *testing.T) {
	provider := raster.NewZipProvider()

	// Out-of-order names plus a non-image entry that must be skipped.
	scan := buildZip(t, map[string][]byte{
		"page_2.png": pngBytes(t, 20, 30),
		"page_1.png": pngBytes(t, 10, 15),
		"notes.txt":  []byte("ignore me"),
	})

	count, err := provider.CountPages(scan)
	if err != nil {
		t.Fatalf("CountPages: %v", err)
	}
	if count != 2 {
		t.Errorf("CountPages = %d, want 2", count)
	}

	pages, errs, err := provider.Pages(scan)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != 2 || len(errs) != 2 {
		t.Fatalf("got %d pages / %d errs, want 2 / 2", len(pages), len(errs))
	}
	for i, pageErr := range errs {
		if pageErr != nil {
			t.Errorf("page %d error: %v", i+1, pageErr)
		}
	}

	// Entry-name order decides page numbering.
	if pages[0].PageNumber != 1 || pages[0].Image.Bounds().Dx() != 10 {
		t.Errorf("page 1 = number %d, width %d; want 1, 10",
			pages[0].PageNumber, pages[0].Image.Bounds().Dx())
	}
	if pages[1].PageNumber != 2 || pages[1].Image.Bounds().Dx() != 20 {
		t.Errorf("page 2 = number %d, width %d; want 2, 20",
			pages[1].PageNumber, pages[1].Image.Bounds().Dx())
	}
}

func TestZipProviderIsolatesBadPage(t *testing.T) {
	provider := raster.NewZipProvider()

	scan := buildZip(t, map[string][]byte{
		"a.png": pngBytes(t, 10, 10),
		"b.png": []byte("this is not a png"),
		"c.png": pngBytes(t, 10, 10),
	})

	pages, errs, err := provider.Pages(scan)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("good pages reported errors: %v, %v", errs[0], errs[2])
	}
	if errs[1] == nil {
		t.Error("corrupt page reported no error")
	}
	if pages[1].Image != nil {
		t.Error("corrupt page carries a decoded image")
	}
	if pages[1].PageNumber != 2 {
		t.Errorf("corrupt page number = %d, want 2", pages[1].PageNumber)
	}
}

func TestZipProviderUnreadable(t *testing.T) {
	provider := raster.NewZipProvider()

	if _, err := provider.CountPages([]byte("not a zip")); !errors.Is(err, raster.ErrUnreadableArchive) {
		t.Errorf("CountPages garbage = %v, want ErrUnreadableArchive", err)
	}

	// A valid archive with no image entries is also unreadable.
	scan := buildZip(t, map[string][]byte{"readme.md": []byte("hello")})
	if _, _, err := provider.Pages(scan); !errors.Is(err, raster.ErrUnreadableArchive) {
		t.Errorf("Pages imageless = %v, want ErrUnreadableArchive", err)
	}
}
