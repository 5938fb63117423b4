package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Display is a Window that also owns the event loop.
type Display interface {
	Window
	ShouldClose() bool
	PollEvents()
}

// FrameInfo describes the frame being recorded.
type FrameInfo struct {
	FrameIndex    int
	CommandBuffer CommandBuffer
	// FrameTime is the time since the previous frame started.
	FrameTime time.Duration
	Extent    Extent
}

// DrawFunc records the draw commands of one frame inside the swapchain
// render pass.
type DrawFunc func(FrameInfo) error

// Loop runs a Renderer until its display closes.
type Loop struct {
	display  Display
	renderer *Renderer
	log      *slog.Logger
	now      func() time.Time

	last   time.Time
	frames uint64
}

func NewLoop(display Display, renderer *Renderer, log *slog.Logger) *Loop {
	return &Loop{display: display, renderer: renderer, log: loggerOrNop(log), now: time.Now}
}

// Frames returns the number of frames presented so far.
func (l *Loop) Frames() uint64 { return l.frames }

// Frame runs one iteration: begin, render pass, draw, end. It reports
// whether a frame was presented. A draw error still closes the pass and
// the frame before it is returned.
func (l *Loop) Frame(draw DrawFunc) (bool, error) {
	cb, err := l.renderer.BeginFrame()
	if err != nil {
		return false, err
	}
	if cb == nil {
		return false, nil
	}

	now := l.now()
	var dt time.Duration
	if !l.last.IsZero() {
		dt = now.Sub(l.last)
	}
	l.last = now

	info := FrameInfo{
		FrameIndex:    l.renderer.FrameIndex(),
		CommandBuffer: cb,
		FrameTime:     dt,
		Extent:        l.renderer.Extent(),
	}
	l.renderer.BeginRenderPass(cb)
	var drawErr error
	if draw != nil {
		drawErr = draw(info)
	}
	l.renderer.EndRenderPass(cb)
	if err := l.renderer.EndFrame(); err != nil {
		return false, errors.Join(drawErr, err)
	}
	if drawErr != nil {
		return false, fmt.Errorf("draw: %w", drawErr)
	}
	l.frames++
	return true, nil
}

// Run drives frames until the display asks to close or ctx is done. The
// context is only checked between frames. The device is idle when Run
// returns.
func (l *Loop) Run(ctx context.Context, draw DrawFunc) (err error) {
	defer func() {
		if werr := l.renderer.WaitIdle(); werr != nil {
			err = errors.Join(err, fmt.Errorf("wait device idle: %w", werr))
		}
	}()

	l.log.Info("frame loop started")
	for !l.display.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.display.PollEvents()
		if _, err := l.Frame(draw); err != nil {
			l.log.Error("frame failed", "error", err, "kind", KindOf(err))
			return err
		}
	}
	l.log.Info("frame loop stopped", "frames", l.frames)
	return nil
}
