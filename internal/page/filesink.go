package page

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileSink mirrors a rendered document to disk. Writes go through a temp
// file and a rename, and are serialized across processes by a lock file
// next to Path.
type FileSink struct {
	Path string

	mu   sync.Mutex
	lock *flock.Flock
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path, lock: flock.New(path + ".lock")}
}

func (s *FileSink) Write(doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(doc), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Sync writes the current state of p.
func (s *FileSink) Sync(p *Page) error {
	doc, err := p.HTML()
	if err != nil {
		return err
	}
	return s.Write(doc)
}

// Mirror keeps a FileSink in step with a Page from its own goroutine, so
// page observers never wait on the disk or the lock file. Requests that
// arrive while a write is queued collapse into that write.
type Mirror struct {
	sink  *FileSink
	page  *Page
	onErr func(error)

	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	pending sync.WaitGroup
	once    sync.Once
}

// NewMirror starts the writer goroutine. onErr may be nil.
func NewMirror(sink *FileSink, p *Page, onErr func(error)) *Mirror {
	m := &Mirror{
		sink:  sink,
		page:  p,
		onErr: onErr,
		kick:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go m.loop()
	return m
}

// Request schedules a write of the page's current state and returns at once.
func (m *Mirror) Request() {
	m.pending.Add(1)
	select {
	case m.kick <- struct{}{}:
	default:
		// a queued write has not started yet and will see this state
		m.pending.Done()
	}
}

// Flush blocks until every requested write has been attempted.
func (m *Mirror) Flush() { m.pending.Wait() }

// Close stops the writer after any queued write.
func (m *Mirror) Close() {
	m.once.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Mirror) loop() {
	defer close(m.done)
	for {
		select {
		case <-m.kick:
			m.write()
		case <-m.stop:
			select {
			case <-m.kick:
				m.write()
			default:
			}
			return
		}
	}
}

func (m *Mirror) write() {
	defer m.pending.Done()
	if err := m.sink.Sync(m.page); err != nil && m.onErr != nil {
		m.onErr(err)
	}
}
