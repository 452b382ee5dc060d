package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nstat-collector/internal/metrics"
	"nstat-collector/internal/nstat"
	"nstat-collector/internal/sink"
)

// DefaultInterval is the pause between two regular samples.
const DefaultInterval = time.Second

// Sink is the append-only destination of samples.
type Sink interface {
	Append(parts ...[]byte) (int, error)
	Close() error
}

// sizer is implemented by sinks that can report their length.
type sizer interface {
	Size() (int64, error)
}

// timeMarker prefixes every timestamped sample.
type timeMarker struct {
	Time float64 `json:"time"`
}

type Collector struct {
	sink     Sink
	command  *nstat.Command
	runner   nstat.Runner
	cmdName  string
	metrics  *metrics.Metrics
	logger   *zap.Logger
	interval time.Duration
	regular  nstat.Options
	now      func() time.Time

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Collector)

// WithLogger sets the diagnostic logger. A nop logger is used otherwise.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithInterval sets the sleep between regular samples. Zero is allowed.
func WithInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.interval = d
		}
	}
}

func WithCommandName(name string) Option {
	return func(c *Collector) {
		if name != "" {
			c.cmdName = name
		}
	}
}

// WithSampleOptions overrides the flags used by the run loop.
func WithSampleOptions(opts nstat.Options) Option {
	return func(c *Collector) {
		c.regular = opts
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// Open opens the sink at path and builds a Collector that owns it.
func Open(path string, runner nstat.Runner, opts ...Option) (*Collector, error) {
	s, err := sink.Open(path)
	if err != nil {
		return nil, err
	}

	c := New(s, runner, opts...)
	if c.metrics != nil {
		c.metrics.SinkCreatedAt.Set(float64(s.CreatedAt().Unix()))
	}
	c.logger.Info("Sink opened", zap.String("path", s.Path()))
	return c, nil
}

// New builds a Collector around an already opened sink. The Collector takes
// ownership of the sink and closes it when Run returns or Close is called.
func New(s Sink, runner nstat.Runner, opts ...Option) *Collector {
	c := &Collector{
		sink:     s,
		runner:   runner,
		cmdName:  nstat.DefaultCommand,
		logger:   zap.NewNop(),
		interval: DefaultInterval,
		regular:  nstat.Regular,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.command = nstat.NewCommand(c.cmdName, c.runner, c.logger)
	return c
}

// CollectSample runs the command once and appends the result to the sink.
// With ResetHistory set only the reset flag is passed and no time marker is
// written. Nothing is written when the command fails.
func (c *Collector) CollectSample(ctx context.Context, opts nstat.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kind := opts.Kind()
	var marker []byte
	if opts.Timestamped() {
		now := c.now()
		m, err := encodeMarker(now)
		if err != nil {
			return err
		}
		marker = m
		c.logger.Debug("Timestamp before cmd", zap.ByteString("marker", marker))
		if c.metrics != nil {
			c.metrics.LastSampleTimestamp.Set(unixSeconds(now))
		}
	}

	start := time.Now()
	result, err := c.command.Execute(opts)
	if c.metrics != nil {
		c.metrics.CommandDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.recordCommandError(err)
		return fmt.Errorf("%s sample: %w", kind, err)
	}

	n, err := c.sink.Append(marker, []byte(result))
	if err != nil {
		return fmt.Errorf("%s sample: %w", kind, err)
	}

	if c.metrics != nil {
		c.metrics.SamplesTotal.WithLabelValues(kind).Inc()
		c.metrics.BytesWritten.Add(float64(n))
		if s, ok := c.sink.(sizer); ok {
			if size, err := s.Size(); err == nil {
				c.metrics.SinkSize.Set(float64(size))
			}
		}
	}
	return nil
}

// Run optionally resets the counters, then samples until ctx is cancelled.
// Cancellation is observed between samples and during the sleep; an in-flight
// command is never aborted. Any sample error stops the loop and is returned.
// The sink is released on every return path.
func (c *Collector) Run(ctx context.Context, resetOnStart bool) (err error) {
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if resetOnStart {
		if err := c.CollectSample(ctx, nstat.Reset); err != nil {
			return c.stopped(ctx, err)
		}
	}

	c.logger.Info("Starting collection loop",
		zap.Strings("args", c.regular.Args()),
		zap.Duration("interval", c.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return c.stopped(ctx, ctx.Err())
		default:
		}

		if err := c.CollectSample(ctx, c.regular); err != nil {
			return c.stopped(ctx, err)
		}

		if err := c.sleep(ctx); err != nil {
			return c.stopped(ctx, err)
		}
	}
}

// Close releases the sink. It is safe to call more than once.
func (c *Collector) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.sink.Close()
	})
	return c.closeErr
}

// stopped turns a cancellation into a graceful exit and passes real errors through.
// The cause is logged as is: a signal and a failing sibling both cancel ctx.
func (c *Collector) stopped(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Info("Collection stopped", zap.NamedError("cause", context.Cause(ctx)))
		c.logger.Info("Exiting from run loop.")
		return nil
	}
	return err
}

func (c *Collector) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Collector) recordCommandError(err error) {
	if c.metrics == nil {
		return
	}

	errorType := "unknown"
	var launchErr *nstat.LaunchError
	var decodeErr *nstat.DecodeError
	switch {
	case errors.As(err, &launchErr):
		errorType = "launch"
	case errors.As(err, &decodeErr):
		errorType = "decode"
	}
	c.metrics.CommandErrors.WithLabelValues(errorType).Inc()
}

func encodeMarker(t time.Time) ([]byte, error) {
	data, err := json.Marshal(timeMarker{Time: unixSeconds(t)})
	if err != nil {
		return nil, fmt.Errorf("encode time marker: %w", err)
	}
	return data, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
