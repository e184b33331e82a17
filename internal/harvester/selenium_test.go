package harvester

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreePort(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)

	// The returned port is actually bindable.
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	listener.Close()
}

func TestFreePortDistinctWhileHeld(t *testing.T) {
	// Two sessions picking ports while the first is still bound never
	// collide.
	first, err := freePort()
	require.NoError(t, err)
	held, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", first))
	require.NoError(t, err)
	defer held.Close()

	second, err := freePort()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestExactTextXPath(t *testing.T) {
	xpath := exactTextXPath("  Most Recent ")
	assert.Contains(t, xpath, "'most recent'")
	assert.Contains(t, xpath, "self::span")
	assert.Contains(t, xpath, "normalize-space")
}
