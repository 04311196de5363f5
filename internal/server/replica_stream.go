package server

import (
	"errors"
	"strconv"

	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

var errPsyncArgs = errors.New("ERR wrong number of arguments for PSYNC")

// handlePsync answers a PSYNC request from a connection that wants to
// become a replica: decides full vs. partial resync (spec.md §4.8),
// replies FULLRESYNC/CONTINUE plus any catch-up payload, attaches the
// connection to the master's fan-out, and starts relaying propagated
// writes until the connection closes. The connection's read loop keeps
// running afterwards: REPLCONF ACK frames from the replica go to
// handleReplconfAck without a reply, and any other command is
// dispatched and answered as usual.
func (c *conn) handlePsync(args []string) {
	if c.srv.master == nil {
		c.writeValue(resp.Err("ERR this instance does not support replication"))
		return
	}

	replID, offset, err := parsePsyncArgs(args)
	if err != nil {
		c.writeValue(resp.Err(err.Error()))
		return
	}

	full, fromOffset := c.srv.master.Decide(replID, offset)
	ourReplID := c.srv.master.ReplID()

	stream := c.srv.master.Attach(c.info.addr)
	c.replStream = stream

	if full {
		c.writeValue(resp.Status("FULLRESYNC " + ourReplID + " 0"))
		payload, perr := c.srv.master.FullSyncPayload()
		if perr != nil {
			log.Warnf("server: full resync payload generation failed: %v", perr)
			payload = nil
		}
		c.writeRaw(resp.Bulk(payload).Encode())
	} else {
		c.writeValue(resp.Status("CONTINUE " + ourReplID))
		if frames, ok := c.srv.master.BacklogFrom(fromOffset); ok {
			for _, f := range frames {
				c.writeRaw(f)
			}
		}
	}

	log.Infof("server: %s promoted to replica link (full=%v)", c.info.addr, full)
	c.startReplicaPushLoop(stream)
}

func (c *conn) startReplicaPushLoop(stream *replication.Stream) {
	go func() {
		for frame := range stream.Messages() {
			c.writeRaw(frame)
		}
	}()
}

func (c *conn) handleReplconfAck(offsetArg string) {
	if c.srv.master == nil || c.replStream == nil {
		return
	}
	offset, err := strconv.ParseUint(offsetArg, 10, 64)
	if err != nil {
		return
	}
	c.srv.master.Ack(c.replStream, offset)
}

func (c *conn) writeRaw(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.nc.Write(data); err != nil {
		log.Debugf("server: replica write to %s failed: %v", c.info.addr, err)
	}
}

func parsePsyncArgs(args []string) (replID string, offset int64, err error) {
	if len(args) != 2 {
		return "", 0, errPsyncArgs
	}
	if args[0] != "?" {
		replID = args[0]
	}
	offset, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, errPsyncArgs
	}
	return replID, offset, nil
}
