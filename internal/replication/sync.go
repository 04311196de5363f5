package replication

import (
	"fmt"
	"strconv"
)

// DecidePSync implements spec.md §4.8's "Master PSYNC decision": given
// the replica's last known replication id and offset, decide whether a
// partial resync is possible. replicaReplID is "" for the replica's
// first-ever sync (the wire form "?"). Grounded on
// original_source/src/replication/sync.rs's SyncHandler::handle_psync.
func DecidePSync(replicaReplID string, replicaOffset int64, ourReplID string, backlog *Backlog) (fullResync bool, fromOffset uint64) {
	if replicaReplID == "" {
		return true, 0
	}
	if replicaReplID != ourReplID {
		return true, 0
	}
	if replicaOffset < 0 {
		return true, 0
	}

	offset := uint64(replicaOffset)
	if _, ok := backlog.GetFromOffset(offset); ok {
		return false, offset
	}
	return true, 0
}

// ParsePSyncArgs parses PSYNC's two arguments: <replid|?> <offset|-1>.
func ParsePSyncArgs(args []string) (replID string, offset int64, err error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("ERR wrong number of arguments for PSYNC")
	}
	if args[0] != "?" {
		replID = args[0]
	}
	offset, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("ERR invalid PSYNC offset: %w", err)
	}
	return replID, offset, nil
}

// FullResyncReply formats the `+FULLRESYNC <replid> <offset>` response
// a master sends when it cannot serve a partial resync.
func FullResyncReply(replID string, offset uint64) string {
	return fmt.Sprintf("FULLRESYNC %s %d", replID, offset)
}

// ContinueReply formats the `+CONTINUE <replid>` response a master
// sends when the replica's offset is still covered by the backlog.
func ContinueReply(replID string) string {
	return fmt.Sprintf("CONTINUE %s", replID)
}
