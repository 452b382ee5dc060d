package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"nstat-collector/internal/metrics"
	"nstat-collector/internal/modules/common"
)

// Config toggles the sub-collectors.
type Config struct {
	EnableNetworkMetrics bool
	EnableProcessMetrics bool
}

// Collector exports host interface counters and the collector's own process
// statistics. It runs next to the nstat loop and never touches the sink.
type Collector struct {
	metrics *metrics.Metrics
	config  Config
	pid     int32
}

func NewCollector(metrics *metrics.Metrics, config Config) *Collector {
	return &Collector{
		metrics: metrics,
		config:  config,
		pid:     int32(os.Getpid()),
	}
}

func (c *Collector) Name() string {
	return "system"
}

func (c *Collector) Collect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	collectors := []struct {
		enabled bool
		name    string
		collect func(context.Context) error
	}{
		{c.config.EnableNetworkMetrics, "Network", c.collectNetworkMetrics},
		{c.config.EnableProcessMetrics, "Process", c.collectProcessMetrics},
	}

	for _, collector := range collectors {
		if collector.enabled {
			wg.Add(1)
			go func(name string, collect func(context.Context) error) {
				defer wg.Done()
				if err := collect(ctx); err != nil {
					errCh <- fmt.Errorf("%s metrics: %w", name, err)
				}
			}(collector.name, collector.collect)
		}
	}

	wg.Wait()
	close(errCh)

	return common.HandleErrors(errCh)
}

func (c *Collector) collectNetworkMetrics(ctx context.Context) error {
	netStats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return err
	}

	for _, stat := range netStats {
		c.metrics.NetworkIO.WithLabelValues(stat.Name, "sent").Set(float64(stat.BytesSent))
		c.metrics.NetworkIO.WithLabelValues(stat.Name, "received").Set(float64(stat.BytesRecv))
		c.metrics.NetworkPackets.WithLabelValues(stat.Name, "sent").Set(float64(stat.PacketsSent))
		c.metrics.NetworkPackets.WithLabelValues(stat.Name, "received").Set(float64(stat.PacketsRecv))
	}

	return nil
}

func (c *Collector) collectProcessMetrics(ctx context.Context) error {
	proc, err := process.NewProcessWithContext(ctx, c.pid)
	if err != nil {
		return err
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return err
	}
	c.metrics.ProcessMemory.WithLabelValues("rss").Set(float64(memInfo.RSS))
	c.metrics.ProcessMemory.WithLabelValues("vms").Set(float64(memInfo.VMS))

	// Runtime memory stats
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.metrics.ProcessMemory.WithLabelValues("heap").Set(float64(m.HeapAlloc))
	c.metrics.ProcessMemory.WithLabelValues("stack").Set(float64(m.StackInuse))
	c.metrics.GoroutineCount.Set(float64(runtime.NumGoroutine()))

	// not supported on every platform
	if fds, err := proc.NumFDsWithContext(ctx); err == nil {
		c.metrics.ProcessFDs.Set(float64(fds))
	}

	return nil
}
