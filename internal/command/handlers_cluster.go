package command

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerClusterCommands(t *Table) {
	t.register(&Command{Name: "CLUSTER", MinArgs: 1, MaxArgs: -1, Handler: cmdCluster})
	t.register(&Command{Name: "ASKING", MinArgs: 0, MaxArgs: 0, Handler: cmdAsking})
}

// cmdAsking arms the one-shot ASKING flag for this connection's next
// command, per spec.md's "the client re-issues the request to the
// target preceded by a bare ASKING".
func cmdAsking(_ context.Context, c *Context, _ []string) resp.Value {
	if c.AskingPtr != nil {
		*c.AskingPtr = true
	}
	return resp.Status("OK")
}

func cmdCluster(_ context.Context, c *Context, args []string) resp.Value {
	sub := strings.ToUpper(args[0])
	rest := args[1:]

	if c.Cluster == nil {
		return resp.Err("ERR This instance has cluster support disabled")
	}

	switch sub {
	case "MYID":
		return resp.BulkString(c.Cluster.MyID())
	case "KEYSLOT":
		if len(rest) != 1 {
			return resp.Err("ERR wrong number of arguments for 'cluster|keyslot' command")
		}
		return resp.Int(int64(cluster.KeySlot(rest[0])))
	case "ADDSLOTS":
		return cmdClusterAddSlots(c, rest)
	case "DELSLOTS":
		return cmdClusterDelSlots(c, rest)
	case "SETSLOT":
		return cmdClusterSetSlot(c, rest)
	case "NODES":
		return resp.BulkString(clusterNodesText(c.Cluster))
	case "SLOTS":
		return clusterSlotsReply(c.Cluster)
	case "INFO":
		return resp.BulkString(clusterInfoText(c.Cluster))
	case "MEET":
		return cmdClusterMeet(c, rest)
	case "FORGET":
		if len(rest) != 1 {
			return resp.Err("ERR wrong number of arguments for 'cluster|forget' command")
		}
		if err := c.Cluster.RemoveNode(rest[0]); err != nil {
			return resp.Err(err.Error())
		}
		return resp.Status("OK")
	case "REPLICATE":
		// Wiring a replica's master assignment into the cluster node
		// graph is a cross-cutting concern (internal/replication +
		// internal/cluster); original_source leaves this a TODO stub
		// too (commands/cluster.rs's cluster_replicate), so this stays
		// an accepted no-op rather than inventing unreviewed semantics.
		return resp.Status("OK")
	case "COUNTKEYSINSLOT":
		if len(rest) != 1 {
			return resp.Err("ERR wrong number of arguments for 'cluster|countkeysinslot' command")
		}
		slot, err := parseSlot(rest[0])
		if err != nil {
			return resp.Err(err.Error())
		}
		return resp.Int(int64(countKeysInSlot(c, slot)))
	case "GETKEYSINSLOT":
		if len(rest) != 2 {
			return resp.Err("ERR wrong number of arguments for 'cluster|getkeysinslot' command")
		}
		slot, err := parseSlot(rest[0])
		if err != nil {
			return resp.Err(err.Error())
		}
		count, err := strconv.Atoi(rest[1])
		if err != nil || count < 0 {
			return resp.Err("ERR count is not an integer or out of range")
		}
		return bulkStringsArray(keysInSlot(c, slot, count))
	default:
		return resp.Err("ERR Unknown CLUSTER subcommand or wrong number of arguments for '" + args[0] + "'")
	}
}

func parseSlot(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n >= cluster.NumSlots {
		return 0, errInvalidSlot
	}
	return uint16(n), nil
}

var errInvalidSlot = errors.New("ERR Invalid or out of range slot")

func cmdClusterAddSlots(c *Context, rest []string) resp.Value {
	if len(rest) == 0 {
		return resp.Err("ERR wrong number of arguments for 'cluster|addslots' command")
	}
	slots := make([]uint16, 0, len(rest))
	for _, a := range rest {
		s, err := parseSlot(a)
		if err != nil {
			return resp.Err(err.Error())
		}
		if owner, ok := c.Cluster.SlotNode(s); ok {
			return resp.Err("ERR Slot " + a + " is already assigned to node " + owner)
		}
		slots = append(slots, s)
	}
	c.Cluster.AssignSlotsToNode(c.Cluster.MyID(), slots)
	c.Cluster.BumpEpoch()
	return resp.Status("OK")
}

func cmdClusterDelSlots(c *Context, rest []string) resp.Value {
	if len(rest) == 0 {
		return resp.Err("ERR wrong number of arguments for 'cluster|delslots' command")
	}
	for _, a := range rest {
		s, err := parseSlot(a)
		if err != nil {
			return resp.Err(err.Error())
		}
		c.Cluster.DelSlot(s)
	}
	c.Cluster.BumpEpoch()
	return resp.Status("OK")
}

// cmdClusterSetSlot implements CLUSTER SETSLOT s IMPORTING src |
// MIGRATING dst | STABLE | NODE n, per spec.md's migration-state table.
func cmdClusterSetSlot(c *Context, rest []string) resp.Value {
	if len(rest) < 2 {
		return resp.Err("ERR wrong number of arguments for 'cluster|setslot' command")
	}
	slot, err := parseSlot(rest[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	switch strings.ToUpper(rest[1]) {
	case "IMPORTING":
		if len(rest) != 3 {
			return resp.Err("ERR wrong number of arguments")
		}
		c.Cluster.SetSlotState(slot, cluster.Importing, rest[2])
	case "MIGRATING":
		if len(rest) != 3 {
			return resp.Err("ERR wrong number of arguments")
		}
		if !c.Cluster.OwnsSlot(slot) {
			return resp.Err("ERR I'm not the owner of hash slot " + rest[0])
		}
		c.Cluster.SetSlotState(slot, cluster.Migrating, rest[2])
	case "STABLE":
		c.Cluster.SetSlotState(slot, cluster.Stable, "")
	case "NODE":
		if len(rest) != 3 {
			return resp.Err("ERR wrong number of arguments")
		}
		c.Cluster.AssignSlotsToNode(rest[2], []uint16{slot})
		c.Cluster.SetSlotState(slot, cluster.Stable, "")
	default:
		return resp.Err("ERR Invalid CLUSTER SETSLOT action")
	}
	c.Cluster.BumpEpoch()
	return resp.Status("OK")
}

// cmdClusterMeet registers a node by address, matching
// original_source's cluster_meet, which is a placeholder pending a real
// gossip handshake — we go one step further and at least record the
// address under a synthetic id so CLUSTER NODES/SLOTS has something to
// show, but no bus protocol actually reaches out to ip:port.
func cmdClusterMeet(c *Context, rest []string) resp.Value {
	if len(rest) != 2 {
		return resp.Err("ERR wrong number of arguments for 'cluster|meet' command")
	}
	addr := rest[0] + ":" + rest[1]
	if !c.Cluster.IsAddrAllowed(addr) {
		return resp.Err("ERR node address not permitted to join this cluster")
	}
	n := cluster.NewMasterNode(syntheticNodeID(addr), addr)
	c.Cluster.AddNode(n)
	return resp.Status("OK")
}

func syntheticNodeID(addr string) string {
	const hexDigits = "0123456789abcdef"
	sum := 0
	for i, b := range []byte(addr) {
		sum = sum*131 + int(b) + i
	}
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = hexDigits[(sum>>(uint(i)%32))&0xf]
		sum = sum*1103515245 + 12345
	}
	return string(buf)
}

func clusterNodesText(reg *cluster.Registry) string {
	var sb strings.Builder
	for _, n := range reg.AllNodes() {
		sb.WriteString(n.ToClusterNodesLine())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func clusterInfoText(reg *cluster.Registry) string {
	assigned := 0
	for s := uint16(0); ; s++ {
		if _, ok := reg.SlotNode(s); ok {
			assigned++
		}
		if s == cluster.NumSlots-1 {
			break
		}
	}
	state := "ok"
	if assigned < cluster.NumSlots {
		state = "fail"
	}
	size := 0
	for _, n := range reg.AllNodes() {
		if n.IsMaster() {
			size++
		}
	}
	var sb strings.Builder
	sb.WriteString("cluster_state:" + state + "\n")
	sb.WriteString("cluster_slots_assigned:" + strconv.Itoa(assigned) + "\n")
	sb.WriteString("cluster_slots_ok:" + strconv.Itoa(assigned) + "\n")
	sb.WriteString("cluster_slots_pfail:0\n")
	sb.WriteString("cluster_slots_fail:0\n")
	sb.WriteString("cluster_known_nodes:" + strconv.Itoa(len(reg.AllNodes())) + "\n")
	sb.WriteString("cluster_size:" + strconv.Itoa(size) + "\n")
	sb.WriteString("cluster_current_epoch:" + strconv.FormatUint(reg.Epoch(), 10) + "\n")
	sb.WriteString("cluster_my_epoch:" + strconv.FormatUint(reg.Epoch(), 10) + "\n")
	sb.WriteString("cluster_stats_messages_sent:0\n")
	sb.WriteString("cluster_stats_messages_received:0\n")
	return sb.String()
}

func clusterSlotsReply(reg *cluster.Registry) resp.Value {
	var rows []resp.Value
	for _, master := range reg.AllNodes() {
		if !master.IsMaster() {
			continue
		}
		for _, r := range master.SlotRanges() {
			row := []resp.Value{resp.Int(int64(r.Start)), resp.Int(int64(r.End))}
			if master.Addr != "" {
				row = append(row, addrTriple(master.Addr, master.ID))
			}
			for _, rep := range reg.Replicas(master.ID) {
				if rep.Addr != "" {
					row = append(row, addrTriple(rep.Addr, rep.ID))
				}
			}
			rows = append(rows, resp.Array(row))
		}
	}
	return resp.Array(rows)
}

func addrTriple(addr, id string) resp.Value {
	host, portStr, _ := strings.Cut(addr, ":")
	port, _ := strconv.Atoi(portStr)
	return resp.Array([]resp.Value{resp.BulkString(host), resp.Int(int64(port)), resp.BulkString(id)})
}

func countKeysInSlot(c *Context, slot uint16) int {
	n := 0
	for _, k := range c.db().Keys("*") {
		if cluster.KeySlot(k) == slot {
			n++
		}
	}
	return n
}

func keysInSlot(c *Context, slot uint16, count int) []string {
	var out []string
	for _, k := range c.db().Keys("*") {
		if cluster.KeySlot(k) == slot {
			out = append(out, k)
			if len(out) >= count {
				break
			}
		}
	}
	return out
}
