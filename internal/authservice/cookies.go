package authservice

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// CookieJar accumulates the name=value pairs the provider sets and replays
// them after the fixed mobile-client cookie. It belongs to one Client.
type CookieJar struct {
	mu     sync.Mutex
	values map[string]string
}

// NewCookieJar returns an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{values: make(map[string]string)}
}

// Store records the cookies from a response. Later values for the same name
// replace earlier ones.
func (j *CookieJar) Store(cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		j.values[c.Name] = c.Value
	}
}

// Header builds the Cookie header: base followed by the stored pairs in name
// order.
func (j *CookieJar) Header(base string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.values) == 0 {
		return base
	}

	names := make([]string, 0, len(j.values))
	for name := range j.values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	if base != "" {
		parts = append(parts, base)
	}
	for _, name := range names {
		parts = append(parts, name+"="+j.values[name])
	}
	return strings.Join(parts, "; ")
}

// Len returns the number of stored cookies.
func (j *CookieJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.values)
}

// Clear drops all stored cookies.
func (j *CookieJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	clear(j.values)
}
