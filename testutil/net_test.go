/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitListeningServer(t *testing.T) {
	addr := GetLocalAddrWithFreeTCPPort()
	require.Error(t, WaitListeningServer(addr, time.Millisecond*50))

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	require.NoError(t, WaitListeningServer(addr, time.Second))
}
