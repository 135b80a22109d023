package dropzone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/upload"
)

type countingEvent struct{ prevented int }

func (e *countingEvent) PreventDefault() { e.prevented++ }

type recordingSelector struct {
	mu       sync.Mutex
	selected []upload.Candidate
	err      error
}

func (r *recordingSelector) SelectFile(c upload.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = append(r.selected, c)
	return r.err
}

func (r *recordingSelector) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.selected))
	for _, c := range r.selected {
		names = append(names, c.Name)
	}
	return names
}

func TestHovering(t *testing.T) {
	s := NewSurface(&recordingSelector{}, zap.NewNop())
	ev := &countingEvent{}

	assert.False(t, s.Hovering())

	s.DragEnter(ev)
	assert.True(t, s.Hovering())

	s.DragOver(ev)
	assert.True(t, s.Hovering())

	s.DragLeave(ev)
	assert.False(t, s.Hovering())

	assert.Equal(t, 3, ev.prevented, "default action must be prevented on every event")

	// nil events are tolerated
	s.DragEnter(nil)
	assert.True(t, s.Hovering())
}

func TestDropSelectsFirstFile(t *testing.T) {
	sel := &recordingSelector{}
	s := NewSurface(sel, nil)
	ev := &countingEvent{}

	s.DragEnter(ev)
	err := s.Drop(ev, []upload.Candidate{
		upload.FromBytes("first.pdf", upload.MIMEPDF, []byte("%PDF")),
		upload.FromBytes("second.pdf", upload.MIMEPDF, []byte("%PDF")),
	})
	require.NoError(t, err)

	assert.False(t, s.Hovering())
	assert.Equal(t, []string{"first.pdf"}, sel.names())
	assert.NoError(t, s.Rejection())
	assert.Equal(t, 2, ev.prevented)
}

func TestDropRejectsInvalidFile(t *testing.T) {
	sel := &recordingSelector{}
	s := NewSurface(sel, nil)
	ev := &countingEvent{}

	err := s.Drop(ev, []upload.Candidate{upload.FromBytes("cv.txt", "text/plain", []byte("hi"))})

	var verr *upload.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, upload.ReasonUnsupportedType, verr.Reason)
	assert.Empty(t, sel.names(), "rejected file must not reach the selector")
	assert.Equal(t, 1, ev.prevented, "default action is prevented before validation")
	assert.Error(t, s.Rejection())
}

func TestDropWithoutFiles(t *testing.T) {
	s := NewSurface(&recordingSelector{}, nil)
	s.DragEnter(nil)

	assert.ErrorIs(t, s.Drop(nil, nil), ErrNoFiles)
	assert.False(t, s.Hovering())
}

func TestDropReturnsSelectorError(t *testing.T) {
	busy := errors.New("busy")
	s := NewSurface(SelectorFunc(func(upload.Candidate) error { return busy }), nil)

	err := s.Drop(nil, []upload.Candidate{upload.FromBytes("cv.doc", upload.MIMEDoc, []byte("doc"))})
	assert.ErrorIs(t, err, busy)
}

func TestWatcherDropsSettledFile(t *testing.T) {
	dir := t.TempDir()
	sel := &recordingSelector{}
	s := NewSurface(sel, nil)
	w := NewWatcher(dir, s, WatcherOptions{QuietPeriod: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.png"), []byte("png"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv.pdf"), []byte("%PDF-1.4"), 0o600))

	require.Eventually(t, func() bool {
		return len(sel.names()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"cv.pdf"}, sel.names())
	assert.False(t, s.Hovering())
}

func TestWriteAfterQuietPeriodKeepsFilePending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	sel := &recordingSelector{}
	w := NewWatcher(dir, NewSurface(sel, nil), WatcherOptions{QuietPeriod: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pending := make(map[string]pendingDrop)
	ready := make(chan settled)

	w.handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create}, pending, ready)

	// the quiet period ended and its value is in flight
	stale := <-ready

	// more bytes arrive before the loop receives that value
	w.handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write}, pending, ready)

	assert.False(t, w.take(stale, pending), "a file still being written must not drop")
	assert.Contains(t, pending, path)

	fresh := <-ready
	assert.True(t, w.take(fresh, pending))
	assert.NotContains(t, pending, path)
	assert.Empty(t, sel.names())
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), NewSurface(&recordingSelector{}, nil), WatcherOptions{})
	assert.Error(t, w.Run(context.Background()))
}

func TestIgnored(t *testing.T) {
	assert.True(t, ignored("/tmp/.cv.pdf.swp"))
	assert.True(t, ignored("/tmp/cv.pdf~"))
	assert.False(t, ignored("/tmp/cv.pdf"))
}
