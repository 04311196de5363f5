package replication

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// fakeMaster emulates just enough of a master's PSYNC handshake and
// streaming behavior to exercise Replica.Start end-to-end without
// starting an internal/server instance.
func fakeMaster(t *testing.T, ln net.Listener, fullSyncPayload []byte, liveFrame []byte) {
	nc, err := ln.Accept()
	require.NoError(t, err)
	defer nc.Close()

	reader := bufio.NewReader(nc)
	expect := func(cmd string) {
		value, _, err := readFrame(reader)
		require.NoError(t, err)
		args, err := value.StringArgs()
		require.NoError(t, err)
		require.NotEmpty(t, args)
		require.Equal(t, strings.ToUpper(cmd), strings.ToUpper(args[0]))
	}

	expect("PING")
	nc.Write([]byte("+PONG\r\n"))
	expect("REPLCONF")
	nc.Write([]byte("+OK\r\n"))
	expect("REPLCONF")
	nc.Write([]byte("+OK\r\n"))
	expect("PSYNC")

	nc.Write([]byte("+FULLRESYNC test-repl-id 0\r\n"))
	nc.Write(resp.Bulk(fullSyncPayload).Encode())

	if liveFrame != nil {
		nc.Write(liveFrame)
	}

	// Drain REPLCONF ACKs until the test tears the connection down.
	for {
		if _, _, err := readFrame(reader); err != nil {
			return
		}
	}
}

func readFrame(reader *bufio.Reader) (resp.Value, int, error) {
	var buf []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return resp.Value{}, 0, err
		}
		buf = append(buf, b)
		if value, consumed, perr := resp.Parse(buf); perr == nil {
			return value, consumed, nil
		} else if perr != resp.ErrIncomplete {
			return resp.Value{}, 0, perr
		}
	}
}

func TestReplicaFullResyncAppliesPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	payload := resp.EncodeRequest("SELECT", "0")
	payload = append(payload, resp.EncodeRequest("SET", "foo", "bar")...)
	liveFrame := resp.EncodeRequest("SET", "live", "1")

	go fakeMaster(t, ln, payload, liveFrame)

	addr := ln.Addr().(*net.TCPAddr)
	info := NewInfo()
	ks := store.NewKeyspace(1)
	table := command.NewTable()
	replica := NewReplica("127.0.0.1", addr.Port, 0, info, ks, table)

	done := make(chan error, 1)
	go func() { done <- replica.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		_, ok := ks.DB(0).Get("foo")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	v, ok := ks.DB(0).Get("foo")
	require.True(t, ok)
	require.Equal(t, "bar", string(v.Bytes))

	require.Eventually(t, func() bool {
		_, ok := ks.DB(0).Get("live")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	replica.Stop()
}
