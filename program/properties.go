package program

import (
	"strings"
	"sync"
)

// Properties is the process-wide properties map (precision, library
// search path, etc.) backing configuration traps, guarded by its own
// mutex since traps may run on any goroutine.
type Properties struct {
	mu   sync.Mutex
	vals map[string]string
}

// NewProperties returns an empty properties map with the documented
// defaults filled in.
func NewProperties() *Properties {
	p := &Properties{vals: make(map[string]string)}
	p.vals["precision"] = "6"
	return p
}

func (p *Properties) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.vals[key]
	return v, ok
}

func (p *Properties) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vals[key] = value
}

// LoadConfLines parses an obr.conf-style "name=value" per line buffer
// into the properties map. Malformed lines
// (no '=') are skipped rather than treated as fatal — obr.conf is
// optional ambient configuration, not part of the image format whose
// malformed-input contract is ImageInvalid.
func (p *Properties) LoadConfLines(lines []string) {
	for _, line := range lines {
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		p.Set(key, val)
	}
}
