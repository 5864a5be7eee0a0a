package urlhash

import (
	"strings"
	"sync"
)

// defaultPorts maps a lower-cased scheme to its well-known default port.
// Canonicalization drops an explicit port that equals the scheme's default,
// so extending this table only ever affects URLs of the newly registered
// scheme; canonical forms of other schemes are unchanged.
var (
	defaultPortsMu sync.RWMutex
	defaultPorts   = map[string]int{
		"http":  80,
		"https": 443,
		"ws":    80,
		"wss":   443,
		"ftp":   21,
	}
)

// DefaultPort returns the registered default port for scheme, and whether
// one is registered. The lookup is case-insensitive.
func DefaultPort(scheme string) (int, bool) {
	defaultPortsMu.RLock()
	port, ok := defaultPorts[strings.ToLower(scheme)]
	defaultPortsMu.RUnlock()
	return port, ok
}

// RegisterDefaultPort registers the default port for a scheme, replacing any
// existing registration. Register before hashing URLs of that scheme: two
// processes with different registrations canonicalize that scheme's URLs
// differently and will not agree on hashes.
func RegisterDefaultPort(scheme string, port int) {
	defaultPortsMu.Lock()
	defaultPorts[strings.ToLower(scheme)] = port
	defaultPortsMu.Unlock()
}
