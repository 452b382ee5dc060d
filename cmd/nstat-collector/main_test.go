package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"nstat-collector/internal/metrics"
)

type fakeModule struct {
	calls  atomic.Int32
	err    error
	cancel context.CancelFunc
	stopAt int32
}

func (f *fakeModule) Name() string { return "fake" }

func (f *fakeModule) Collect(ctx context.Context) error {
	if f.calls.Add(1) == f.stopAt {
		f.cancel()
	}
	return f.err
}

func TestRunModule_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	module := &fakeModule{cancel: cancel, stopAt: 3, err: errors.New("flaky")}

	done := make(chan struct{})
	go func() {
		runModule(ctx, module, time.Millisecond, m, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runModule did not stop")
	}

	assert.GreaterOrEqual(t, module.calls.Load(), int32(3))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CollectionDuration))
}
