package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/pubsub"
	"github.com/ridgedb/ridgedb/internal/store"
)

func startTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	ks := store.NewKeyspace(4)
	table := command.NewTable()
	hub := pubsub.NewHub()
	srv := NewServer(cfg, table, ks, hub, nil)

	go func() {
		srv.ListenAndServe()
	}()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv, srv.Addr()
}

func mustDial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return c, bufio.NewReader(c)
}

func sendCommand(t *testing.T, c net.Conn, args ...string) {
	t.Helper()
	buf := []byte("*" + itoa(len(args)) + "\r\n")
	for _, a := range args {
		buf = append(buf, []byte("$"+itoa(len(a))+"\r\n"+a+"\r\n")...)
	}
	_, err := c.Write(buf)
	require.NoError(t, err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestPingWithoutAuth(t *testing.T) {
	_, addr := startTestServer(t, DefaultConfig(""))
	c, r := mustDial(t, addr)
	defer c.Close()

	sendCommand(t, c, "PING")
	line := readLine(t, r)
	require.Equal(t, "+PONG\r\n", line)
}

func TestSetGetRoundTrip(t *testing.T) {
	_, addr := startTestServer(t, DefaultConfig(""))
	c, r := mustDial(t, addr)
	defer c.Close()

	sendCommand(t, c, "SET", "foo", "bar")
	require.Equal(t, "+OK\r\n", readLine(t, r))

	sendCommand(t, c, "GET", "foo")
	require.Equal(t, "$3\r\n", readLine(t, r))
	require.Equal(t, "bar\r\n", readLine(t, r))
}

func TestRequirePassRejectsUntilAuthenticated(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	cfg := DefaultConfig("")
	cfg.RequirePassHash = hash
	_, addr := startTestServer(t, cfg)
	c, r := mustDial(t, addr)
	defer c.Close()

	sendCommand(t, c, "GET", "foo")
	line := readLine(t, r)
	require.Contains(t, line, "NOAUTH")

	sendCommand(t, c, "AUTH", "wrong")
	require.Contains(t, readLine(t, r), "ERR")

	sendCommand(t, c, "AUTH", "s3cret")
	require.Equal(t, "+OK\r\n", readLine(t, r))

	sendCommand(t, c, "GET", "foo")
	require.Equal(t, "$-1\r\n", readLine(t, r))
}

func TestPubSubSubscribeAndPublish(t *testing.T) {
	_, addr := startTestServer(t, DefaultConfig(""))
	sub, sr := mustDial(t, addr)
	defer sub.Close()
	pub, pr := mustDial(t, addr)
	defer pub.Close()

	sendCommand(t, sub, "SUBSCRIBE", "news")
	require.Equal(t, "*3\r\n", readLine(t, sr))
	require.Equal(t, "$9\r\n", readLine(t, sr))
	require.Equal(t, "subscribe\r\n", readLine(t, sr))
	require.Equal(t, "$4\r\n", readLine(t, sr))
	require.Equal(t, "news\r\n", readLine(t, sr))
	require.Equal(t, ":1\r\n", readLine(t, sr))

	sendCommand(t, pub, "PUBLISH", "news", "hello")
	require.Equal(t, ":1\r\n", readLine(t, pr))

	require.Equal(t, "*3\r\n", readLine(t, sr))
	require.Equal(t, "$7\r\n", readLine(t, sr))
	require.Equal(t, "message\r\n", readLine(t, sr))
	require.Equal(t, "$4\r\n", readLine(t, sr))
	require.Equal(t, "news\r\n", readLine(t, sr))
	require.Equal(t, "$5\r\n", readLine(t, sr))
	require.Equal(t, "hello\r\n", readLine(t, sr))
}
