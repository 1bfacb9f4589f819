package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Counter is a named, monotonically increasing value.
type Counter struct {
	name    string
	help    string
	counter prometheus.Counter
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Help returns the counter description.
func (c *Counter) Help() string {
	return c.help
}

// Inc adds 1 to the counter.
func (c *Counter) Inc() {
	c.counter.Inc()
}

// Value returns the current counter value.
// Write on a plain client_golang counter has no labels or exemplars to
// validate and never fails, so there is no error to return.
func (c *Counter) Value() uint64 {
	var m dto.Metric
	_ = c.counter.Write(&m)
	return toUint(m.GetCounter().GetValue())
}

// Sample is one counter as seen by Snapshot.
type Sample struct {
	Name  string
	Help  string
	Value uint64
}

// Registry is a fixed set of counters backed by a private Prometheus registry.
//
// Register is meant for startup. Increment and Snapshot are safe for
// concurrent use; increments never contend with each other on a shared lock.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	reg      *prometheus.Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		reg:      prometheus.NewRegistry(),
	}
}

// Register creates a counter under name.
// Returns *DuplicateNameError if name is already registered.
func (r *Registry) Register(name, help string) (*Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.counters[name]; exists {
		return nil, &DuplicateNameError{Name: name}
	}

	c := &Counter{
		name: name,
		help: help,
		counter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}),
	}

	if err := r.reg.Register(c.counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil, &DuplicateNameError{Name: name}
		}
		return nil, fmt.Errorf("register counter %q: %w", name, err)
	}

	r.counters[name] = c
	return c, nil
}

// Increment adds 1 to the named counter.
// Returns *UnknownCounterError if name was never registered.
func (r *Registry) Increment(name string) error {
	c, ok := r.lookup(name)
	if !ok {
		return &UnknownCounterError{Name: name}
	}
	c.Inc()
	return nil
}

// Counter returns the registered counter for name.
func (r *Registry) Counter(name string) (*Counter, bool) {
	return r.lookup(name)
}

func (r *Registry) lookup(name string) (*Counter, bool) {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	return c, ok
}

// Snapshot returns every registered counter ordered by name.
func (r *Registry) Snapshot() ([]Sample, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	samples := make([]Sample, 0, len(families))
	for _, mf := range families {
		c, ok := r.lookup(mf.GetName())
		if !ok {
			continue
		}
		var value uint64
		if ms := mf.GetMetric(); len(ms) > 0 {
			value = toUint(ms[0].GetCounter().GetValue())
		}
		samples = append(samples, Sample{
			Name:  c.name,
			Help:  c.help,
			Value: value,
		})
	}

	return samples, nil
}

// WriteText writes all gathered metrics in the text exposition format.
// Nothing is written to w if gathering or encoding fails.
func (r *Registry) WriteText(w io.Writer) error {
	body, err := r.Exposition()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write exposition: %w", err)
	}
	return nil
}

// Exposition returns all gathered metrics in the text exposition format.
func (r *Registry) Exposition() ([]byte, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}

	return buf.Bytes(), nil
}

// toUint converts a Prometheus counter value to an integer count.
func toUint(v float64) uint64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint64(v)
}
