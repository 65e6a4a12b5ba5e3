package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// DownloadUI manages multiple concurrent download progress bars using mpb.
// When stderr is not a terminal the bars are disabled and each file prints
// one line on start and one on completion instead.
type DownloadUI struct {
	progress   *mpb.Progress
	bars       sync.Map // resource id -> *DownloadFileBar
	isTerminal bool
	totalFiles int
	completed  int32
}

// DownloadFileBar represents a single file download progress bar.
type DownloadFileBar struct {
	bar       *mpb.Bar
	ui        *DownloadUI
	index     int
	name      string
	size      int64
	retries   int32
	startTime time.Time
}

// NewDownloadUI creates a download UI for totalFiles transfers.
func NewDownloadUI(totalFiles int) *DownloadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &DownloadUI{
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddFileBar creates a progress bar for one file, keyed by resource id.
func (u *DownloadUI) AddFileBar(index int, resourceID, name string, size int64) *DownloadFileBar {
	fb := &DownloadFileBar{
		ui:        u,
		index:     index,
		name:      name,
		size:      size,
		startTime: time.Now(),
	}

	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					label := fmt.Sprintf("[%d/%d] %s (%.1f MiB)",
						fb.index, u.totalFiles, name,
						float64(size)/(1024*1024))
					if retries := atomic.LoadInt32(&fb.retries); retries > 0 {
						return fmt.Sprintf("%s (retry %d)", label, retries)
					}
					return label
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Printf("Downloading [%d/%d]: %s (%.1f MiB)\n",
			index, u.totalFiles, name, float64(size)/(1024*1024))
	}

	u.bars.Store(resourceID, fb)
	return fb
}

// Bar returns the bar registered for a resource id, if any.
func (u *DownloadUI) Bar(resourceID string) (*DownloadFileBar, bool) {
	v, ok := u.bars.Load(resourceID)
	if !ok {
		return nil, false
	}
	return v.(*DownloadFileBar), true
}

// SetRetry updates the retry counter shown in the bar label.
func (f *DownloadFileBar) SetRetry(count int) {
	atomic.StoreInt32(&f.retries, int32(count))
}

// Complete marks the download as finished and prints a one-line summary.
func (f *DownloadFileBar) Complete(err error) {
	elapsed := time.Since(f.startTime)

	if err == nil {
		if f.bar != nil {
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true)
		}
		msg := fmt.Sprintf("✓ %s (%.1f MiB, %s)\n",
			f.name, float64(f.size)/(1024*1024), elapsed.Round(time.Second))
		f.ui.write(msg)
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		retries := atomic.LoadInt32(&f.retries)
		msg := fmt.Sprintf("✗ %s: %v (after %d retries)\n", f.name, err, retries)
		f.ui.write(msg)
	}

	atomic.AddInt32(&f.ui.completed, 1)
}

// write prints above the bars: through mpb's writer on a terminal so the
// redraw does not mangle the line, directly to stdout otherwise.
func (u *DownloadUI) write(msg string) {
	if u.isTerminal && u.progress != nil {
		u.progress.Write([]byte(msg))
		return
	}
	fmt.Print(msg)
}

// Wait blocks until all progress bars complete.
func (u *DownloadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Completed returns the number of finished transfers, successful or not.
func (u *DownloadUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal reports whether the bars are actually rendering.
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}
