package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeSPARootReadyAfterSettle(t *testing.T) {
	// Re-query after the settle wait sees the root grown.
	grown := spaReadySnapshot()
	grown.Roots[0].TextLength = 300
	grown.Roots[0].ImageCount = 7
	sess := &fakeSession{snapshots: []contentSnapshot{
		shellSnapshot(),
		spaReadySnapshot(),
		grown,
	}}

	p := testPipeline(0)
	got := p.probeContent(context.Background(), sess)

	assert.True(t, got.Ready)
	assert.Equal(t, "#root", got.Source)
	assert.Equal(t, 300, got.TextLength)
	assert.Equal(t, 7, got.ImageCount)
}

func TestProbeBodyReadyReturnsWithoutSettle(t *testing.T) {
	sess := &fakeSession{snapshots: []contentSnapshot{{
		Roots: []rootSnapshot{{Selector: "#root", Present: false}},
		Body:  bodySnapshot{TextLength: 900, ImageCount: 2},
	}}}

	p := testPipeline(0)
	got := p.probeContent(context.Background(), sess)

	assert.True(t, got.Ready)
	assert.Equal(t, "body", got.Source)
	assert.Equal(t, 900, got.TextLength)
	// One query only: the body path does not re-query.
	assert.Len(t, sess.evaluated(), 1)
}

func TestProbeBodyImageCountAloneQualifies(t *testing.T) {
	sess := &fakeSession{snapshots: []contentSnapshot{{
		Body: bodySnapshot{TextLength: 10, ImageCount: 4},
	}}}

	got := testPipeline(0).probeContent(context.Background(), sess)

	assert.True(t, got.Ready)
	assert.Equal(t, "body", got.Source)
}

func TestProbeTimeoutReportsLastBodyCounts(t *testing.T) {
	sess := &fakeSession{snapshots: []contentSnapshot{shellSnapshot()}}

	got := testPipeline(0).probeContent(context.Background(), sess)

	assert.False(t, got.Ready)
	assert.Equal(t, "timeout", got.Source)
	assert.Equal(t, 12, got.TextLength)
	assert.Equal(t, 0, got.ImageCount)
}

func TestProbeSettleRequeryRootGoneKeepsOriginalMatch(t *testing.T) {
	sess := &fakeSession{snapshots: []contentSnapshot{
		spaReadySnapshot(),
		// The re-query no longer sees the root; the match stands with the
		// original counts.
		{Roots: []rootSnapshot{{Selector: "#root", Present: false}}},
	}}

	got := testPipeline(0).probeContent(context.Background(), sess)

	assert.True(t, got.Ready)
	assert.Equal(t, "#root", got.Source)
	assert.Equal(t, 120, got.TextLength)
}

func TestJudgeSnapshotThresholds(t *testing.T) {
	tests := []struct {
		name  string
		snap  contentSnapshot
		ready bool
	}{
		{
			name: "root text at threshold is not enough",
			snap: contentSnapshot{Roots: []rootSnapshot{{
				Selector: "#app", Present: true, ChildCount: 1, TextLength: 50,
			}}},
			ready: false,
		},
		{
			name: "root with two images qualifies",
			snap: contentSnapshot{Roots: []rootSnapshot{{
				Selector: "#app", Present: true, ChildCount: 1, ImageCount: 2,
			}}},
			ready: true,
		},
		{
			name: "empty root with content falls to body check",
			snap: contentSnapshot{
				Roots: []rootSnapshot{{Selector: "#app", Present: true, ChildCount: 0, TextLength: 500}},
				Body:  bodySnapshot{TextLength: 150, ImageCount: 1},
			},
			ready: false,
		},
		{
			name:  "body text over threshold",
			snap:  contentSnapshot{Body: bodySnapshot{TextLength: 201}},
			ready: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := judgeSnapshot(tt.snap)
			assert.Equal(t, tt.ready, ok)
		})
	}
}
