package sink

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"
)

// ErrUnknownSink is returned by Get for a name nobody registered.
var ErrUnknownSink = errors.New("sink: unknown sink")

// Config carries every setting a registered sink may need.
type Config struct {
	Verbosity Verbosity
	Format    Format
	Pretty    bool

	// Writer is the stdout sink's destination; nil means os.Stdout.
	Writer io.Writer

	Path    string // file sink
	MaxSize int64  // file sink rotation threshold in bytes; 0 disables

	URL     string            // webhook sink
	Headers map[string]string // webhook sink
	Timeout time.Duration     // webhook sink
	Client  *http.Client      // webhook sink; nil uses a default client
}

// Constructor creates a sink from shared config.
type Constructor func(cfg Config) (Sink, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a sink constructor under name. Sink packages call it from init.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Get returns the constructor registered under name.
func Get(name string) (Constructor, error) {
	mu.RLock()
	defer mu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}
	return ctor, nil
}

// Names returns the registered sink names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open constructs each named sink. If any constructor fails, sinks already
// opened are closed and the error is returned.
func Open(names []string, cfg Config) ([]Sink, error) {
	sinks := make([]Sink, 0, len(names))
	for _, name := range names {
		ctor, err := Get(name)
		if err == nil {
			var s Sink
			s, err = ctor(cfg)
			if err == nil {
				sinks = append(sinks, s)
				continue
			}
			err = fmt.Errorf("sink: open %s: %w", name, err)
		}
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}
	return sinks, nil
}
