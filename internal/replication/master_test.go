package replication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func TestMasterPropagatePrefixesSelectOnDBChange(t *testing.T) {
	m := NewMaster(0)
	stream := m.Attach("127.0.0.1:1")

	m.Propagate(0, []string{"SET", "a", "1"})
	m.Propagate(0, []string{"SET", "b", "2"})
	m.Propagate(1, []string{"SET", "c", "3"})

	var frames [][]byte
	for i := 0; i < 3; i++ {
		select {
		case f := <-stream.Messages():
			frames = append(frames, f)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for propagated frame")
		}
	}

	assert.Contains(t, string(frames[0]), "SELECT")
	assert.Contains(t, string(frames[0]), "SET")
	assert.NotContains(t, string(frames[1]), "SELECT")
	assert.Contains(t, string(frames[2]), "SELECT")
}

func TestMasterPropagateFeedsBacklog(t *testing.T) {
	m := NewMaster(0)
	m.Propagate(0, []string{"SET", "a", "1"})
	assert.Greater(t, m.Info.Offset(), uint64(0))
	assert.Greater(t, m.backlog.Size(), 0)
}

func TestMasterAttachDetach(t *testing.T) {
	m := NewMaster(0)
	s := m.Attach("127.0.0.1:1")
	assert.Equal(t, 1, m.ReplicaCount())
	assert.Equal(t, 1, m.Info.ReplicaCount())

	m.Detach(s)
	assert.Equal(t, 0, m.ReplicaCount())
	assert.Equal(t, 0, m.Info.ReplicaCount())
}

func TestMasterWaitReachesTargetImmediately(t *testing.T) {
	m := NewMaster(0)
	s := m.Attach("127.0.0.1:1")
	m.Propagate(0, []string{"SET", "a", "1"})
	m.Ack(s, m.Info.Offset())

	reached := m.Wait(1, 100*time.Millisecond)
	assert.Equal(t, 1, reached)
}

func TestMasterWaitTimesOutWithoutAck(t *testing.T) {
	m := NewMaster(0)
	m.Attach("127.0.0.1:1")
	m.Propagate(0, []string{"SET", "a", "1"})

	start := time.Now()
	reached := m.Wait(1, 50*time.Millisecond)
	assert.Equal(t, 0, reached)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestFullSyncReplyFormatting(t *testing.T) {
	require.Equal(t, "FULLRESYNC abc 0", FullResyncReply("abc", 0))
	require.Equal(t, "CONTINUE abc", ContinueReply("abc"))
}

func TestStreamCarriesRawEncodedFrames(t *testing.T) {
	m := NewMaster(0)
	s := m.Attach("127.0.0.1:1")
	m.Propagate(0, []string{"PING"})

	frame := <-s.Messages()
	value, _, err := resp.Parse(frame[len(resp.EncodeRequest("SELECT", "0")):])
	require.NoError(t, err)
	args, err := value.StringArgs()
	require.NoError(t, err)
	assert.Equal(t, []string{"PING"}, args)
}
