package logging

import "time"

// Config tunes the router. The zero value is unusable; start from
// DefaultConfig and override fields from the environment.
type Config struct {
	// EnabledSinks names the sinks to construct, by NamedSink name.
	EnabledSinks []string
	// BufferSize caps the router's intake queue.
	BufferSize      int
	MinimumSeverity Severity
	// Fields are merged into every event's Extra map, losing to any key
	// the event already carries.
	Fields  map[string]any
	JSON    JSONConfig
	Console ConsoleConfig
	// DropWarnInterval rate-limits the stderr warning emitted when the
	// intake queue overflows.
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig logs info and above to the console.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// CloneFields copies the shared field map so the router owns its own view.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
