// ABOUTME: TCP JSON-RPC client for Atlas audio processors
// ABOUTME: Manages connection lifecycle, request correlation, and update dispatch

package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harper/atlas-control/internal/jsonrpc"
	"github.com/harper/atlas-control/internal/logger"
)

// DefaultPort is the JSON-RPC control port on Atlas processors. Some
// deployments configure a different port; nothing here assumes 5321.
const DefaultPort = 5321

const (
	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 5 * time.Second

	// Read deadline per poll so the reader notices cancellation.
	readPollInterval = 200 * time.Millisecond
)

// Logger is the minimal sink for protocol trace output.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// State of the client's one TCP session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options tune a Client. Zero values get defaults.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Logger         Logger
	// OnDrop is called from the reader goroutine when the device closes
	// the connection or the socket fails. Not called on Disconnect.
	OnDrop func(err error)
}

type result struct {
	payload json.RawMessage
	err     error
}

// Client owns one TCP connection to one Atlas processor. Requests may
// be pipelined: each gets a distinct id and its caller blocks on its
// own pending channel, so a slow response to one request never stalls
// another. One client per socket; clients must not share connections.
type Client struct {
	host string
	port int
	opts Options
	log  Logger

	nextID atomic.Uint64

	// connMu serializes Connect/Disconnect against each other so two
	// concurrent Connects cannot both dial.
	connMu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       net.Conn
	pending    map[uint64]chan result
	subs       *subscriptions
	cancelRead context.CancelFunc
	readerDone chan struct{}
}

// NewClient creates a client for the device at host:port. A port of 0
// means DefaultPort. The client does not connect until Connect.
func NewClient(host string, port int, opts Options) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default().WithPrefix(net.JoinHostPort(host, strconv.Itoa(port)))
	}
	return &Client{
		host:    host,
		port:    port,
		opts:    opts,
		log:     log,
		pending: make(map[uint64]chan result),
		subs:    newSubscriptions(),
	}
}

// Addr returns the device endpoint as host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether a session is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect opens the TCP session. Calling Connect while connected is a
// no-op. The reader goroutine is running before Connect returns, so no
// incoming byte is lost.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	addr := c.Addr()
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	readCtx, cancelRead := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.cancelRead = cancelRead
	c.readerDone = done
	c.mu.Unlock()

	go c.readLoop(readCtx, conn, done)

	c.log.Infof("connected to %s", addr)
	return nil
}

// Disconnect tears the session down unconditionally and is idempotent.
// Every outstanding request is rejected immediately with a connection
// error wrapping ErrConnectionClosed, and subscription state is cleared;
// callers must resubscribe after reconnecting.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	conn := c.conn
	cancel := c.cancelRead
	done := c.readerDone
	c.conn = nil
	c.cancelRead = nil
	c.readerDone = nil
	c.failPendingLocked(&ConnectionError{Op: "disconnect", Addr: c.Addr(), Err: ErrConnectionClosed})
	c.subs.reset()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
	c.log.Infof("disconnected from %s", c.Addr())
}

// failPendingLocked rejects every in-flight request. Caller holds c.mu.
func (c *Client) failPendingLocked(err error) {
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- result{err: err}
	}
}

// SendRequest writes one framed request and waits for the correlated
// response. It returns the raw result payload, a *CommandError when the
// device answered with an error object, ErrTimeout when no response
// arrived in time, or a *ConnectionError when the session failed.
// Exactly one of those outcomes occurs per request.
func (c *Client) SendRequest(ctx context.Context, method string, params jsonrpc.Params) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	id := c.nextID.Add(1)
	ch := make(chan result, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writeRequest(conn, jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		Method:  method,
		Params:  params,
		ID:      &id,
	}); err != nil {
		c.dropPending(id)
		return nil, err
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.payload, res.err
	case <-timer.C:
		// A response delivered just before the timer fired wins.
		if !c.dropPending(id) {
			res := <-ch
			return res.payload, res.err
		}
		c.log.Warnf("request %d (%s %s) timed out", id, method, params.Param)
		return nil, ErrTimeout
	case <-ctx.Done():
		if !c.dropPending(id) {
			res := <-ch
			return res.payload, res.err
		}
		return nil, ctx.Err()
	}
}

// SendNotification writes a request with no id: fire-and-forget, no
// response expected or correlated.
func (c *Client) SendNotification(method string, params jsonrpc.Params) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	return c.writeRequest(conn, jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		Method:  method,
		Params:  params,
	})
}

// writeRequest serializes and frames one outgoing message. CRLF is
// written for compatibility with all observed firmware generations.
func (c *Client) writeRequest(conn net.Conn, req jsonrpc.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	c.log.Debugf("-> %s", data)
	data = append(data, '\r', '\n')
	if _, err := conn.Write(data); err != nil {
		return &ConnectionError{Op: "write", Addr: c.Addr(), Err: err}
	}
	return nil
}

// dropPending removes the table entry for id. Returns false when the
// reader already claimed it, meaning a result is sitting in the channel.
func (c *Client) dropPending(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// readLoop owns the socket read side: it feeds raw chunks into the line
// buffer and dispatches every complete message. All dispatch happens on
// this one goroutine.
func (c *Client) readLoop(ctx context.Context, conn net.Conn, done chan struct{}) {
	defer close(done)

	var frames lineBuffer
	buf := make([]byte, 4096)

	for {
		if ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, err := conn.Read(buf)
		if n > 0 {
			frames.feed(buf[:n])
			for {
				line, ok := frames.next()
				if !ok {
					break
				}
				if len(line) == 0 {
					continue
				}
				c.dispatch(line)
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.handleDrop(err)
			return
		}
	}
}

// handleDrop reacts to an unexpected socket failure: every pending
// request fails at once and the caller must reconnect explicitly. No
// silent auto-reconnect; a dead device should look dead.
func (c *Client) handleDrop(err error) {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	c.cancelRead = nil
	c.readerDone = nil
	c.failPendingLocked(&ConnectionError{Op: "read", Addr: c.Addr(), Err: err})
	c.subs.reset()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.log.Errorf("connection to %s lost: %v", c.Addr(), err)

	if c.opts.OnDrop != nil {
		c.opts.OnDrop(err)
	}
}

// dispatch routes one parsed line. Malformed JSON, unknown response
// ids, and shapeless messages are logged and discarded; nothing on the
// wire may crash the read loop or surface to callers.
func (c *Client) dispatch(line []byte) {
	var msg jsonrpc.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		c.log.Warnf("discarding unparseable line: %v", err)
		return
	}
	c.log.Debugf("<- %s", line)

	switch {
	case msg.IsResponse():
		c.resolve(*msg.ID, &msg)
	case msg.IsUpdate():
		var p jsonrpc.Params
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			c.log.Warnf("discarding update with bad params: %v", err)
			return
		}
		c.subs.dispatch(p)
	default:
		c.log.Warnf("discarding message with no id and method %q", msg.Method)
	}
}

// resolve completes the pending request for id. Late, duplicate, or
// unexpected ids are discarded without error.
func (c *Client) resolve(id uint64, msg *jsonrpc.Message) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debugf("no pending request for id %d, discarding", id)
		return
	}
	if msg.Error != nil {
		ch <- result{err: &CommandError{Code: msg.Error.Code, Message: msg.Error.Message}}
		return
	}
	ch <- result{payload: msg.Result}
}
