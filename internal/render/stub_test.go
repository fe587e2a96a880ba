package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/browser"
)

// fakeSession scripts a browser.Session for pipeline and service tests.
// Snapshot queries pop from snapshots, repeating the last entry once the
// queue is down to one.
type fakeSession struct {
	mu sync.Mutex

	navErr     error
	loadErr    error
	loadBlocks bool
	idleErr    error
	// onIdleSnapshots, when set, replaces the snapshot queue the first time
	// WaitNetworkIdle runs. Models content that arrives once the network
	// settles.
	onIdleSnapshots []contentSnapshot

	snapErr   error
	snapshots []contentSnapshot
	payload   *extractionPayload
	evalErr   error

	shotData   []byte
	shotErr    error
	shotBlocks bool

	scripts []string
	closed  bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.navErr
}

func (s *fakeSession) WaitLoad(ctx context.Context) error {
	if s.loadBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.loadErr
}

func (s *fakeSession) WaitNetworkIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.onIdleSnapshots != nil {
		s.snapshots = s.onIdleSnapshots
		s.onIdleSnapshots = nil
	}
	s.mu.Unlock()
	return s.idleErr
}

func (s *fakeSession) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
	switch v := out.(type) {
	case *contentSnapshot:
		if s.snapErr != nil {
			return s.snapErr
		}
		if len(s.snapshots) == 0 {
			return errors.New("no snapshot queued")
		}
		*v = s.snapshots[0]
		if len(s.snapshots) > 1 {
			s.snapshots = s.snapshots[1:]
		}
	case *extractionPayload:
		if s.payload == nil {
			return errors.New("no extraction payload queued")
		}
		*v = *s.payload
	case nil:
		return s.evalErr
	}
	return nil
}

func (s *fakeSession) Screenshot(ctx context.Context, opts browser.CaptureOptions) ([]byte, error) {
	if s.shotBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.shotErr != nil {
		return nil, s.shotErr
	}
	return s.shotData, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) evaluated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.scripts))
	copy(out, s.scripts)
	return out
}

// fakeLeasePool hands out leases over a fixed session and counts releases.
type fakeLeasePool struct {
	mu         sync.Mutex
	sess       browser.Session
	acquireErr error
	blocks     bool
	released   int
}

func (p *fakeLeasePool) Acquire(ctx context.Context) (*browser.Lease, error) {
	if p.blocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return &browser.Lease{Session: p.sess}, nil
}

func (p *fakeLeasePool) Release(l *browser.Lease) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakeLeasePool) releases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func testPipeline(defaultDelay time.Duration) *Pipeline {
	return NewPipeline(PipelineConfig{
		NavigationTimeout:    time.Second,
		LoadTimeout:          50 * time.Millisecond,
		ProbeBudget:          50 * time.Millisecond,
		ProbeInterval:        2 * time.Millisecond,
		ProbeSettle:          time.Millisecond,
		NetworkIdleTimeout:   50 * time.Millisecond,
		ScrollTimeout:        50 * time.Millisecond,
		ImageWaitTimeout:     50 * time.Millisecond,
		DefaultPostLoadDelay: defaultDelay,
	}, zap.NewNop())
}

func spaReadySnapshot() contentSnapshot {
	return contentSnapshot{
		Roots: []rootSnapshot{{
			Selector: "#root", Present: true, ChildCount: 3,
			TextLength: 120, ImageCount: 4,
		}},
		Body: bodySnapshot{TextLength: 120, ImageCount: 4},
	}
}

func shellSnapshot() contentSnapshot {
	return contentSnapshot{
		Roots: []rootSnapshot{{Selector: "#root", Present: true, ChildCount: 0}},
		Body:  bodySnapshot{TextLength: 12},
	}
}
