// Package pdf opens source documents and cuts page ranges out of them as
// standalone PDFs.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPageOutOfRange is returned when a requested page lies outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Document is a read-only PDF held in memory. It is safe for concurrent use.
type Document struct {
	name      string
	data      []byte
	pageCount int
}

// Open reads the PDF at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes wraps PDF data already in memory. The data must not be modified
// afterwards.
func FromBytes(name string, data []byte) (*Document, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to get page count for %s: %w", name, err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("%s has no pages", name)
	}

	return &Document{
		name:      name,
		data:      data,
		pageCount: pageCount,
	}, nil
}

// newConfiguration returns a fresh pdfcpu configuration. pdfcpu records the
// running command on the configuration, so calls must not share one.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Name returns the file name the document was loaded from.
func (d *Document) Name() string {
	return d.name
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// Size returns the document size in bytes.
func (d *Document) Size() int {
	return len(d.data)
}

// Bytes returns the raw document bytes.
func (d *Document) Bytes() []byte {
	return d.data
}

// Slice returns pages start through end (1-indexed, inclusive) as a new PDF
// whose first page is the source's start page.
func (d *Document) Slice(ctx context.Context, start, end int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 1 || start > end {
		return nil, fmt.Errorf("%w: invalid slice %d-%d", ErrPageOutOfRange, start, end)
	}
	if end > d.pageCount {
		return nil, fmt.Errorf("%w: page %d exceeds page count %d of %s", ErrPageOutOfRange, end, d.pageCount, d.name)
	}
	if start == 1 && end == d.pageCount {
		return d.data, nil
	}

	var buf bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.Trim(bytes.NewReader(d.data), &buf, selection, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to slice pages %d-%d of %s: %w", start, end, d.name, err)
	}
	return buf.Bytes(), nil
}
