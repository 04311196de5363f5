package aof

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/internal/txn"
	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// Load replays path's frames through table against ks, returning the
// number of commands replayed. A missing file is not an error — a
// fresh instance simply has nothing to replay, matching
// original_source's AofReader::load "file does not exist, skipping".
//
// Every frame — including the SELECT frames Append interleaves — is
// dispatched through the ordinary command table, so db-index tracking
// falls out of SELECT's own handler rather than needing a second
// bookkeeping variable the way original_source's replay_command does.
func Load(path string, table *command.Table, ks *store.Keyspace) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("aof: %s does not exist, nothing to replay", path)
			return 0, nil
		}
		return 0, fmt.Errorf("aof: read %q failed: %w", path, err)
	}

	dbIndex := 0
	ctx := &command.Context{
		Keyspace: ks,
		DBIndex:  &dbIndex,
		Txn:      txn.NewState(),
		NowMS:    func() uint64 { return 0 },
		Table:    table,
	}

	count := 0
	buf := data
	for len(buf) > 0 {
		value, consumed, perr := resp.Parse(buf)
		if perr != nil {
			if errors.Is(perr, resp.ErrIncomplete) {
				log.Warnf("aof: %s ends with a truncated frame, stopping replay", path)
				break
			}
			return count, fmt.Errorf("aof: malformed frame at replay offset %d: %w", len(data)-len(buf), perr)
		}
		buf = buf[consumed:]

		args, aerr := value.StringArgs()
		if aerr != nil || len(args) == 0 {
			continue
		}
		if reply, _ := table.Dispatch(context.Background(), ctx, args); reply.Kind == resp.KindError {
			log.Warnf("aof: replay of %v failed: %s", args, reply.Str)
		}
		count++
	}

	log.Infof("aof: replayed %d commands from %s", count, path)
	return count, nil
}
