// internal/session/connection.go
package session

import (
	"sync"

	"github.com/Annany2002/nebula-workbench/internal/engine"
)

// connection is the live binding between the session and one engine handle.
// The handle is closed once the connection is retired and every operation
// that acquired it has released it.
type connection struct {
	name string
	eng  engine.Engine

	mu      sync.Mutex
	refs    int
	retired bool
	done    chan struct{}
}

func newConnection(name string, eng engine.Engine) *connection {
	return &connection{name: name, eng: eng, done: make(chan struct{})}
}

// acquire must be called while the store lock is held, so a retired
// connection is never handed out.
func (c *connection) acquire() {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()
}

func (c *connection) release() {
	c.mu.Lock()
	c.refs--
	closeNow := c.retired && c.refs == 0
	c.mu.Unlock()
	if closeNow {
		c.close()
	}
}

// retire marks the connection as replaced. The returned channel is closed
// after the engine handle is.
func (c *connection) retire() <-chan struct{} {
	c.mu.Lock()
	if c.retired {
		c.mu.Unlock()
		return c.done
	}
	c.retired = true
	closeNow := c.refs == 0
	c.mu.Unlock()
	if closeNow {
		c.close()
	}
	return c.done
}

func (c *connection) close() {
	if err := c.eng.Close(); err != nil {
		customLog.Warnf("Session: Failed to close engine for '%s': %v", c.name, err)
	} else {
		customLog.Printf("Session: Closed engine for '%s'", c.name)
	}
	close(c.done)
}
