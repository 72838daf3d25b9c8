// ABOUTME: In-process mock Atlas device for client tests
// ABOUTME: Speaks line-framed JSON-RPC over a real TCP listener

package atlas

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockDevice accepts one connection and answers each parsed request
// through its handler. A nil handler (or nil return) swallows the
// request, which is how timeout tests starve the client.
type mockDevice struct {
	t       *testing.T
	ln      net.Listener
	handler func(req map[string]interface{}) interface{}

	mu    sync.Mutex
	lines []string
	conn  net.Conn
	ready chan struct{}
}

func newMockDevice(t *testing.T, handler func(map[string]interface{}) interface{}) *mockDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &mockDevice{t: t, ln: ln, handler: handler, ready: make(chan struct{})}
	go d.serve()
	t.Cleanup(d.close)
	return d
}

func (d *mockDevice) serve() {
	conn, err := d.ln.Accept()
	if err != nil {
		return
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	close(d.ready)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		d.mu.Lock()
		d.lines = append(d.lines, line)
		d.mu.Unlock()

		if d.handler == nil {
			continue
		}
		var req map[string]interface{}
		if json.Unmarshal([]byte(line), &req) != nil {
			continue
		}
		if resp := d.handler(req); resp != nil {
			d.write(resp)
		}
	}
}

func (d *mockDevice) write(obj interface{}) {
	data, err := json.Marshal(obj)
	require.NoError(d.t, err)
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		conn.Write(append(data, '\r', '\n'))
	}
}

// push sends an unsolicited message once the client has connected.
func (d *mockDevice) push(obj interface{}) {
	select {
	case <-d.ready:
	case <-time.After(2 * time.Second):
		d.t.Fatal("no client connected to mock device")
	}
	d.write(obj)
}

// pushRaw sends arbitrary bytes, terminator included.
func (d *mockDevice) pushRaw(raw string) {
	select {
	case <-d.ready:
	case <-time.After(2 * time.Second):
		d.t.Fatal("no client connected to mock device")
	}
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	conn.Write([]byte(raw))
}

func (d *mockDevice) endpoint() (string, int) {
	addr := d.ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func (d *mockDevice) received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// waitLines blocks until the device has received at least n lines.
func (d *mockDevice) waitLines(n int) []string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		lines := d.received()
		if len(lines) >= n {
			return lines
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.t.Fatalf("timed out waiting for %d lines, have %d", n, len(d.received()))
	return nil
}

func (d *mockDevice) dropConnection() {
	select {
	case <-d.ready:
	case <-time.After(2 * time.Second):
		d.t.Fatal("no client connected to mock device")
	}
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	conn.Close()
}

func (d *mockDevice) close() {
	d.ln.Close()
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// echoHandler confirms every request carrying an id by echoing the
// param back in the standard array result shape.
func echoHandler(req map[string]interface{}) interface{} {
	id, ok := req["id"]
	if !ok {
		return nil
	}
	params, _ := req["params"].(map[string]interface{})
	entry := map[string]interface{}{"param": params["param"]}
	for _, key := range []string{"val", "pct", "str"} {
		if v, ok := params[key]; ok {
			entry[key] = v
		}
	}
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  []interface{}{entry},
	}
}

// resultHandler answers every get with a fixed result array.
func resultHandler(result interface{}) func(map[string]interface{}) interface{} {
	return func(req map[string]interface{}) interface{} {
		id, ok := req["id"]
		if !ok {
			return nil
		}
		return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result}
	}
}

func testOptions() Options {
	return Options{
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 300 * time.Millisecond,
	}
}

func dialMock(t *testing.T, d *mockDevice, opts Options) *Client {
	t.Helper()
	host, port := d.endpoint()
	c := NewClient(host, port, opts)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Disconnect)
	return c
}

func parseLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &msg))
	return msg
}
