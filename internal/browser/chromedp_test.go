package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestChromedpSessionRendersDynamicContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><script>document.body.innerHTML = '<div id="late">late content</div>';</script></body></html>`)
	}))
	defer srv.Close()

	pool, err := NewPool(Config{MaxConcurrent: 1, UserAgent: "TestAgent"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer pool.Stop()

	lease, err := pool.Acquire(ctx)
	if err != nil {
		t.Skipf("session unavailable: %v", err)
	}
	defer pool.Release(lease)

	if err := lease.Session.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := lease.Session.WaitLoad(ctx); err != nil {
		t.Fatalf("wait load: %v", err)
	}
	if err := lease.Session.WaitNetworkIdle(ctx); err != nil {
		t.Fatalf("wait network idle: %v", err)
	}

	var text string
	if err := lease.Session.Evaluate(ctx, `document.body.innerText`, &text); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(text, "late content") {
		t.Fatalf("rendered body missing dynamic content: %q", text)
	}

	buf, err := lease.Session.Screenshot(ctx, CaptureOptions{Format: "png"})
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("expected non-empty screenshot")
	}
}
