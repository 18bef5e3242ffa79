package host

import "sync"

var (
	defaultSession *Session
	initOnce       sync.Once
)

// Init creates the process-wide session on first call. Later calls return
// the existing session and ignore their arguments.
func Init(h Host, cfg *Config) *Session {
	initOnce.Do(func() {
		defaultSession = NewSession(h, cfg)
	})
	return defaultSession
}

// Default returns the session created by Init, or nil before Init.
func Default() *Session {
	return defaultSession
}
