package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"ytsum/internal/pipeline"
)

// progressObserver renders pipeline events as a single progress line on a
// terminal. Downloads show a byte bar; every other state shows a spinner.
type progressObserver struct {
	mu       sync.Mutex
	out      io.Writer
	bar      *progressbar.ProgressBar
	download bool
}

func newProgressObserver(out io.Writer) *progressObserver {
	return &progressObserver{out: out}
}

func (p *progressObserver) OnEvent(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.State {
	case pipeline.StateDone:
		p.finish()
		return
	case pipeline.StateFailed:
		p.clear()
		return
	}
	if p.download {
		p.clear()
	}
	p.spin(describeEvent(e))
}

// downloadProgress is installed as the acquisition byte callback.
func (p *progressObserver) downloadProgress(done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.download || p.bar == nil {
		p.clear()
		if total <= 0 {
			total = -1
		}
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(pipeline.StateAcquiring.Label()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		p.download = true
	}
	_ = p.bar.Set64(done)
}

func (p *progressObserver) spin(description string) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Describe(description)
	_ = p.bar.Add(1)
}

func (p *progressObserver) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
	p.download = false
}

func (p *progressObserver) clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
		p.bar = nil
	}
	p.download = false
}

func (p *progressObserver) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

func describeEvent(e pipeline.Event) string {
	label := e.State.Label()
	if e.ChunkTotal > 0 {
		return fmt.Sprintf("%s chunk %d/%d", label, e.ChunkIndex, e.ChunkTotal)
	}
	return label
}
