package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/shared"
)

// LabelSource streams the printable label for an order.
type LabelSource interface {
	DownloadLabel(ctx context.Context, orderID int64, w io.Writer) error
}

// LabelOptions configures a [LabelOpener].
type LabelOptions struct {
	Dir             string        // temp directory, default: os.TempDir()
	Printer         string        // spooler destination, default printer when empty
	OpenViewer      bool          // also show the label in the system viewer
	DownloadTimeout time.Duration // default: 15s
}

// LabelOpener downloads labels to temporary files and prints them through the system spooler.
type LabelOpener struct {
	source LabelSource
	opts   LabelOptions
	logger *log.Logger

	view  func(path string) error
	print func(path, printer string) error

	mu     sync.Mutex
	viewed []string // labels handed to the viewer, removed by Close
}

// NewLabelOpener creates a LabelOpener backed by src.
func NewLabelOpener(src LabelSource, opts LabelOptions, logger *log.Logger) *LabelOpener {
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LabelOpener{
		source: src,
		opts:   opts,
		logger: logger,
		view:   shared.OpenDocument,
		print:  shared.PrintDocument,
	}
}

// Open starts downloading the label in the background. The viewport is ready once the download completes.
func (o *LabelOpener) Open(ctx context.Context, orderID int64) (Viewport, error) {
	f, err := os.CreateTemp(o.opts.Dir, fmt.Sprintf("label-%d-*.pdf", orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to create label file: %w", err)
	}

	vp := &labelViewport{opener: o, orderID: orderID, path: f.Name(), fetching: true}
	go vp.download(ctx, f)
	return vp, nil
}

// Close removes the labels that were left on disk for the viewer.
func (o *LabelOpener) Close() error {
	o.mu.Lock()
	paths := o.viewed
	o.viewed = nil
	o.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *LabelOpener) keep(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewed = append(o.viewed, path)
}

type labelViewport struct {
	opener  *LabelOpener
	orderID int64
	path    string

	mu       sync.Mutex
	loaded   bool
	closed   bool
	err      error
	printed  bool
	viewed   bool
	released bool
	fetching bool
}

func (v *labelViewport) download(ctx context.Context, f *os.File) {
	ctx, cancel := context.WithTimeout(ctx, v.opener.opts.DownloadTimeout)
	defer cancel()

	err := v.opener.source.DownloadLabel(ctx, v.orderID, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write label file: %w", cerr)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.fetching = false
	if err != nil {
		v.opener.logger.Error("failed to download label", "order", v.orderID, "err", err)
		v.err = err
		v.closed = true
		os.Remove(v.path)
		return
	}
	if v.released {
		os.Remove(v.path)
		return
	}
	v.loaded = true
}

// Close releases the label file. A label shown in the viewer stays on disk until the opener is closed;
// a download still in flight removes its file when it completes.
func (v *labelViewport) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	v.released = true
	v.closed = true
	if v.fetching || v.viewed {
		return nil
	}
	if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (v *labelViewport) Ready() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded, nil
}

func (v *labelViewport) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Err returns the download error, if any.
func (v *labelViewport) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *labelViewport) Print() error {
	v.mu.Lock()
	if v.closed || v.printed {
		v.mu.Unlock()
		return nil
	}
	v.printed = true
	o := v.opener
	v.viewed = o.opts.OpenViewer
	v.mu.Unlock()

	if o.opts.OpenViewer {
		o.keep(v.path)
		if err := o.view(v.path); err != nil {
			o.logger.Warn("failed to open label viewer", "path", v.path, "err", err)
		}
	}
	return o.print(v.path, o.opts.Printer)
}
