package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rmq/lib/util"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/serializer"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	defaultConnectTimeout = 3 * time.Second
	defaultRequestTimeout = 3 * time.Second
	writeTimeout          = 10 * time.Second
)

// result is what a pending request is completed with
type result struct {
	res *common.Command
	err error
}

// Connection is one established socket to a remote address.
//
// A writer goroutine drains the outbound queue in FIFO order, a reader goroutine
// decodes incoming frames and completes pending requests by opaque id. When the
// reader stops every pending request is completed with common.ErrDisconnected.
type Connection struct {
	id     string
	addr   string
	conn   net.Conn
	parent *clientTransport

	outbound   *util.LockFreeMPSC[*common.Command]
	pending    *xsync.MapOf[int32, chan result]
	nextOpaque atomic.Int32

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// newConnection wraps an upgraded socket and starts its loops
func newConnection(parent *clientTransport, addr string, conn net.Conn) *Connection {
	c := &Connection{
		id:       uuid.NewString(),
		addr:     addr,
		conn:     conn,
		parent:   parent,
		outbound: util.NewLockFreeMPSC[*common.Command](),
		pending:  xsync.NewMapOf[int32, chan result](),
		done:     make(chan struct{}),
	}

	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnection)
// --------------------------------------------------------------------------

func (c *Connection) ID() string { return c.id }

func (c *Connection) Addr() string { return c.addr }

func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Invoke(ctx context.Context, cmd *common.Command) (*common.Command, error) {
	if c.closed.Load() {
		return nil, common.ErrDisconnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.parent.requestTimeout())
		defer cancel()
	}

	start := time.Now()
	defer func() { c.parent.metrics.requestDuration.Update(time.Since(start).Seconds()) }()
	c.parent.metrics.requests.Inc()

	opaque, ch := c.register()
	cmd.Header.Opaque = opaque

	if err := signCommand(cmd, c.parent.config.Credentials); err != nil {
		c.pending.Delete(opaque)
		c.parent.metrics.requestErrors.Inc()
		return nil, err
	}

	// the reader may have drained the table between the closed check and register
	if c.closed.Load() {
		if _, ok := c.pending.LoadAndDelete(opaque); ok {
			c.parent.metrics.requestErrors.Inc()
			return nil, common.ErrDisconnected
		}
	} else if !c.outbound.Push(cmd) {
		if _, ok := c.pending.LoadAndDelete(opaque); ok {
			c.parent.metrics.requestErrors.Inc()
			return nil, common.ErrDisconnected
		}
	}

	select {
	case r := <-ch:
		if r.err != nil {
			c.parent.metrics.requestErrors.Inc()
		}
		return r.res, r.err
	case <-ctx.Done():
		c.pending.Delete(opaque)
		c.parent.metrics.timeouts.Inc()
		return nil, fmt.Errorf("%w: request %d to %s: %w", common.ErrCanceled, opaque, c.addr, ctx.Err())
	}
}

func (c *Connection) InvokeOneway(ctx context.Context, cmd *common.Command) error {
	if c.closed.Load() {
		return common.ErrDisconnected
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrCanceled, err)
	}

	cmd.MarkOneway()
	cmd.Header.Opaque = c.nextID()
	if err := signCommand(cmd, c.parent.config.Credentials); err != nil {
		return err
	}

	c.parent.metrics.requests.Inc()
	if !c.outbound.Push(cmd) {
		return common.ErrDisconnected
	}
	return nil
}

// Close tears the connection down. Pending requests are failed by the reader.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.outbound.Close()
		err = c.conn.Close()
		c.parent.removeConnection(c)
		close(c.done)
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextID returns the next opaque id. Wrapping is intentional, zero is skipped.
func (c *Connection) nextID() int32 {
	for {
		if id := c.nextOpaque.Add(1); id != 0 {
			return id
		}
	}
}

// register reserves an opaque id that is not in use and its completion channel
func (c *Connection) register() (int32, chan result) {
	ch := make(chan result, 1)
	for {
		id := c.nextID()
		if _, loaded := c.pending.LoadOrStore(id, ch); !loaded {
			return id, ch
		}
	}
}

func (c *Connection) isClosed() bool {
	return c.closed.Load()
}

// wait blocks until both loops have exited
func (c *Connection) wait() {
	c.wg.Wait()
}

// writeLoop writes queued commands until the queue is closed and drained
func (c *Connection) writeLoop() {
	defer c.wg.Done()

	codec := c.parent.codec
	for cmd := range c.outbound.Recv() {
		if c.closed.Load() {
			c.fail(cmd, common.ErrDisconnected)
			continue
		}

		frame, err := serializer.EncodeFrame(cmd, codec)
		if err != nil {
			Logger.Errorf("Failed to encode %s for %s: %v", cmd, c.addr, err)
			c.fail(cmd, err)
			continue
		}

		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			Logger.Debugf("Failed to set write deadline on %s: %v", c.addr, err)
		}
		if _, err := c.conn.Write(frame); err != nil {
			Logger.Warningf("Write to %s failed, closing connection %s: %v", c.addr, c.id, err)
			c.fail(cmd, common.ErrDisconnected)
			c.Close()
		}
	}
}

// readLoop decodes frames until the socket fails, then drains the pending table
func (c *Connection) readLoop() {
	defer c.wg.Done()
	defer c.drain()
	defer c.Close()

	reader := bufio.NewReader(c.conn)
	for {
		cmd, err := serializer.ReadFrame(reader)
		if err != nil {
			switch {
			case c.closed.Load():
			case errors.Is(err, io.EOF):
				Logger.Infof("Connection %s to %s closed by peer", c.id, c.addr)
			default:
				Logger.Warningf("Failed to read from %s, closing connection %s: %v", c.addr, c.id, err)
			}
			return
		}

		if !cmd.IsResponse() {
			c.parent.dispatch(c, cmd)
			continue
		}

		ch, ok := c.pending.LoadAndDelete(cmd.Header.Opaque)
		if !ok {
			Logger.Debugf("Dropping response with unknown opaque %d from %s", cmd.Header.Opaque, c.addr)
			continue
		}
		ch <- result{res: cmd}
	}
}

// fail completes the pending entry of cmd with err, if it is still pending
func (c *Connection) fail(cmd *common.Command, err error) {
	if cmd.IsOneway() || cmd.IsResponse() {
		return
	}
	if ch, ok := c.pending.LoadAndDelete(cmd.Header.Opaque); ok {
		ch <- result{err: err}
	}
}

// drain completes every pending request with common.ErrDisconnected
func (c *Connection) drain() {
	n := 0
	c.pending.Range(func(opaque int32, ch chan result) bool {
		if _, ok := c.pending.LoadAndDelete(opaque); ok {
			ch <- result{err: common.ErrDisconnected}
			n++
		}
		return true
	})
	if n > 0 {
		Logger.Debugf("Failed %d pending requests on connection %s to %s", n, c.id, c.addr)
	}
}
