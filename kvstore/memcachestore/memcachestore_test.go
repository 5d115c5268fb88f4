/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package memcachestore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-kvlru/kvstore"
	"github.com/acronis/go-kvlru/kvstore/storetest"
	"github.com/acronis/go-kvlru/testutil"
)

// fakeServer speaks the subset of the memcached text protocol used by the client.
type fakeServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data map[string][]byte
	wg   sync.WaitGroup
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", testutil.GetLocalAddrWithFreeTCPPort())
	require.NoError(t, err)
	srv := &fakeServer{ln: ln, data: make(map[string][]byte)}
	srv.wg.Add(1)
	go srv.serve()
	require.NoError(t, testutil.WaitListeningServer(ln.Addr().String(), time.Second*3))
	t.Cleanup(func() {
		_ = ln.Close()
		srv.wg.Wait()
	})
	return srv
}

func (s *fakeServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { _ = conn.Close() }()
			s.handleConn(conn)
		}()
	}
}

func (s *fakeServer) handleConn(conn net.Conn) {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimRight(line, "\r\n"))
		if len(fields) == 0 {
			continue
		}
		if err = s.handleCommand(rw, fields); err != nil {
			return
		}
		if err = rw.Flush(); err != nil {
			return
		}
	}
}

func (s *fakeServer) handleCommand(rw *bufio.ReadWriter, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch fields[0] {
	case "get", "gets":
		for _, key := range fields[1:] {
			if val, ok := s.data[key]; ok {
				_, _ = fmt.Fprintf(rw, "VALUE %s 0 %d 1\r\n", key, len(val))
				_, _ = rw.Write(val)
				_, _ = rw.WriteString("\r\n")
			}
		}
		_, _ = rw.WriteString("END\r\n")
	case "set":
		if len(fields) < 5 {
			_, _ = rw.WriteString("ERROR\r\n")
			return nil
		}
		size, err := strconv.Atoi(fields[4])
		if err != nil {
			return err
		}
		buf := make([]byte, size+2)
		if _, err = io.ReadFull(rw, buf); err != nil {
			return err
		}
		s.data[fields[1]] = buf[:size]
		_, _ = rw.WriteString("STORED\r\n")
	case "delete":
		if _, ok := s.data[fields[1]]; !ok {
			_, _ = rw.WriteString("NOT_FOUND\r\n")
			return nil
		}
		delete(s.data, fields[1])
		_, _ = rw.WriteString("DELETED\r\n")
	case "incr", "decr":
		val, ok := s.data[fields[1]]
		if !ok {
			_, _ = rw.WriteString("NOT_FOUND\r\n")
			return nil
		}
		cur, err := kvstore.ParseCounter(val)
		if err != nil {
			_, _ = rw.WriteString("CLIENT_ERROR cannot increment or decrement non-numeric value\r\n")
			return nil
		}
		delta, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return err
		}
		res := kvstore.ApplyDelta(cur, delta, fields[0] == "decr")
		s.data[fields[1]] = kvstore.FormatCounter(res)
		_, _ = fmt.Fprintf(rw, "%d\r\n", res)
	case "flush_all":
		s.data = make(map[string][]byte)
		_, _ = rw.WriteString("OK\r\n")
	default:
		_, _ = rw.WriteString("ERROR\r\n")
	}
	return nil
}

func newTestStore(t *testing.T, addr string) *Store {
	t.Helper()
	s, err := New([]string{addr}, Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	storetest.RunConformanceTests(t, func(t *testing.T) kvstore.Store {
		return newTestStore(t, startFakeServer(t).Addr())
	})
}

// TestStore_RealServer runs the conformance suite against a live memcached
// when KVLRU_TEST_MEMCACHED_ADDR is set (e.g. "127.0.0.1:11211").
func TestStore_RealServer(t *testing.T) {
	addr := os.Getenv("KVLRU_TEST_MEMCACHED_ADDR")
	if addr == "" {
		t.Skip("KVLRU_TEST_MEMCACHED_ADDR is not set")
	}
	storetest.RunConformanceTests(t, func(t *testing.T) kvstore.Store {
		s := newTestStore(t, addr)
		require.NoError(t, s.Flush(context.Background()))
		return s
	})
}

func TestStore_IllegalKeysAreHashed(t *testing.T) {
	ctx := context.Background()
	srv := startFakeServer(t)
	s := newTestStore(t, srv.Addr())

	keys := []string{
		"kvlru:idx:key with spaces",
		"kvlru:idx:" + strings.Repeat("x", maxKeyLength),
		"kvlru:idx:line\nbreak",
	}
	for i, key := range keys {
		require.NoError(t, s.Set(ctx, key, []byte(strconv.Itoa(i))))
	}
	for i, key := range keys {
		val, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(i), string(val))
	}
	for _, k := range srv.Keys() {
		require.True(t, strings.HasPrefix(k, hashedKeyPrefix), "key %q must be hashed", k)
		require.LessOrEqual(t, len(k), maxKeyLength)
	}
}

func TestStoreKey(t *testing.T) {
	tests := []struct {
		key        string
		wantHashed bool
	}{
		{key: "kvlru:meta:head", wantHashed: false},
		{key: "kvlru:ent:" + strings.Repeat("a", 64), wantHashed: false},
		{key: "", wantHashed: true},
		{key: "has space", wantHashed: true},
		{key: "tab\tkey", wantHashed: true},
		{key: "del\x7f", wantHashed: true},
		{key: strings.Repeat("k", maxKeyLength+1), wantHashed: true},
		{key: hashedKeyPrefix + "spoofed", wantHashed: true},
	}
	for _, tt := range tests {
		got := storeKey(tt.key)
		if tt.wantHashed {
			require.True(t, strings.HasPrefix(got, hashedKeyPrefix), "key %q", tt.key)
			require.NotEqual(t, tt.key, got)
		} else {
			require.Equal(t, tt.key, got)
		}
	}
}

func TestNew_NoServers(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
}
