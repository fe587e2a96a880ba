package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/igentity/pagecapture/internal/browser"
)

// Readiness thresholds. SPA roots are trusted with less content than the
// whole body: a framework root with rendered children is a strong signal,
// while the body check has to see enough content to rule out shells and
// cookie banners.
const (
	rootTextThreshold  = 50
	rootImageThreshold = 1
	bodyTextThreshold  = 200
	bodyImageThreshold = 3
)

// probeContent polls the page's render state until a readiness condition
// holds or the probe budget expires. When an SPA root qualifies, it waits
// one settle interval for async data and re-queries before reporting, so
// the counts reflect the post-settle state.
func (p *Pipeline) probeContent(ctx context.Context, sess browser.Session) Readiness {
	deadline := time.Now().Add(p.cfg.ProbeBudget)
	var last contentSnapshot

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		snap, err := querySnapshot(ctx, sess)
		if err != nil {
			p.logger.Debug("content snapshot failed", zap.Error(err))
			if sleep(ctx, p.cfg.ProbeInterval) != nil {
				break
			}
			continue
		}
		last = snap

		if r, ok := judgeSnapshot(snap); ok {
			if r.Source == "body" {
				return r
			}
			return p.settleAndRequery(ctx, sess, r)
		}

		if sleep(ctx, p.cfg.ProbeInterval) != nil {
			break
		}
	}
	return notReady(last)
}

// settleAndRequery waits one settle interval for async data, then
// refreshes the matched root's counts. The original match stands even if
// the refresh fails or the root disappeared.
func (p *Pipeline) settleAndRequery(ctx context.Context, sess browser.Session, r Readiness) Readiness {
	if sleep(ctx, p.cfg.ProbeSettle) != nil {
		return r
	}
	snap, err := querySnapshot(ctx, sess)
	if err != nil {
		return r
	}
	for _, root := range snap.Roots {
		if root.Selector == r.Source && root.Present {
			r.TextLength = root.TextLength
			r.ImageCount = root.ImageCount
			break
		}
	}
	return r
}

func querySnapshot(ctx context.Context, sess browser.Session) (contentSnapshot, error) {
	var snap contentSnapshot
	if err := sess.Evaluate(ctx, contentSnapshotJS, &snap); err != nil {
		return contentSnapshot{}, err
	}
	return snap, nil
}

// judgeSnapshot applies the readiness thresholds: the first SPA root with
// children and enough content wins, otherwise the body is checked against
// the higher thresholds.
func judgeSnapshot(snap contentSnapshot) (Readiness, bool) {
	for _, root := range snap.Roots {
		if root.Present && root.ChildCount > 0 &&
			(root.TextLength > rootTextThreshold || root.ImageCount > rootImageThreshold) {
			return Readiness{
				Ready:      true,
				TextLength: root.TextLength,
				ImageCount: root.ImageCount,
				Source:     root.Selector,
			}, true
		}
	}
	if snap.Body.TextLength > bodyTextThreshold || snap.Body.ImageCount > bodyImageThreshold {
		return Readiness{
			Ready:      true,
			TextLength: snap.Body.TextLength,
			ImageCount: snap.Body.ImageCount,
			Source:     "body",
		}, true
	}
	return Readiness{}, false
}

func notReady(snap contentSnapshot) Readiness {
	return Readiness{
		Ready:      false,
		TextLength: snap.Body.TextLength,
		ImageCount: snap.Body.ImageCount,
		Source:     "timeout",
	}
}
