// ABOUTME: Tests for the leased connection manager
// ABOUTME: One shared client per endpoint; last release disconnects

package atlas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SharesClientPerEndpoint(t *testing.T) {
	dev := newMockDevice(t, echoHandler)
	host, port := dev.endpoint()

	m := NewManager(testOptions())
	defer m.Close()

	a, err := m.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	b, err := m.Acquire(context.Background(), host, port)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Len())
	assert.True(t, a.IsConnected())
}

func TestManager_LastReleaseDisconnects(t *testing.T) {
	dev := newMockDevice(t, echoHandler)
	host, port := dev.endpoint()

	m := NewManager(testOptions())
	defer m.Close()

	client, err := m.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	_, err = m.Acquire(context.Background(), host, port)
	require.NoError(t, err)

	m.Release(host, port)
	assert.True(t, client.IsConnected(), "client must stay up while leases remain")
	assert.Equal(t, 1, m.Len())

	m.Release(host, port)
	assert.False(t, client.IsConnected())
	assert.Equal(t, 0, m.Len())

	// Releasing an unknown endpoint is harmless.
	m.Release(host, port)
}

func TestManager_AcquireFailureReturnsLease(t *testing.T) {
	dev := newMockDevice(t, nil)
	host, port := dev.endpoint()
	dev.close() // nothing listening

	m := NewManager(testOptions())
	_, err := m.Acquire(context.Background(), host, port)
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestManager_Close(t *testing.T) {
	dev := newMockDevice(t, echoHandler)
	host, port := dev.endpoint()

	m := NewManager(testOptions())
	client, err := m.Acquire(context.Background(), host, port)
	require.NoError(t, err)

	m.Close()
	assert.False(t, client.IsConnected())
	assert.Equal(t, 0, m.Len())
}
