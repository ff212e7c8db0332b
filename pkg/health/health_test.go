package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func passingCheck() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func runTimes(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("NoChecks", func(t *testing.T) {
		w := serve(New().LiveEndpoint)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("BelowThreshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("flaky", time.Second, failingCheck("temporary"))
		runTimes(h.liveness[0], 2)

		assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code)
	})

	t.Run("Failing", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, passingCheck())
		h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))
		runTimes(h.liveness[1], 3)

		w := serve(h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("GateClosed", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("storage", time.Second, passingCheck())

		w := serve(h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	})

	t.Run("Toggle", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("storage", time.Second, passingCheck())

		h.SetReady(true)
		assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
		h.SetReady(false)
		assert.Equal(t, http.StatusServiceUnavailable, serve(h.ReadyEndpoint).Code)
	})

	t.Run("StorageDown", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("storage", time.Second, PingCheck(pinger{err: errors.New("refused")}))
		h.AddReadinessCheck("other", time.Second, passingCheck())
		h.SetReady(true)
		runTimes(h.readiness[0], 3)

		w := serve(h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"storage":"ping: refused"}}`, w.Body.String())
		assert.False(t, h.IsReady())
	})
}

func TestCheckRecovers(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.liveness[0]

	runTimes(c, 3)
	_, failed := c.failure()
	assert.True(t, failed)

	failing = false
	runTimes(c, 1)
	_, failed = c.failure()
	assert.False(t, failed)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := h.readiness[0]
	runTimes(c, 3)

	msg, failed := c.failure()
	assert.True(t, failed)
	assert.Contains(t, msg, "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("concurrent", time.Second, failingCheck("err"))
	h.AddReadinessCheck("storage", time.Second, PingCheck(pinger{}))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				serve(h.LiveEndpoint)
				serve(h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()

	// Stop waits for the check goroutines; goleak verifies none remain.
	h.Stop()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds threshold")
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
	assert.NoError(t, PingCheck(pinger{})(context.Background()))
}
