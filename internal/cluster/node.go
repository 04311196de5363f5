package cluster

import (
	"fmt"
	"sort"
	"strings"
)

// NodeFlag is one bit of a node's role/health state, mirrored from
// original_source's NodeFlags enum (cluster/node.rs).
type NodeFlag int

const (
	FlagMaster NodeFlag = iota
	FlagSlave
	FlagMyself
	FlagFail
	FlagPFail
	FlagHandshake
	FlagNoAddr
)

func (f NodeFlag) String() string {
	switch f {
	case FlagMaster:
		return "master"
	case FlagSlave:
		return "slave"
	case FlagMyself:
		return "myself"
	case FlagFail:
		return "fail"
	case FlagPFail:
		return "fail?"
	case FlagHandshake:
		return "handshake"
	case FlagNoAddr:
		return "noaddr"
	default:
		return "noflags"
	}
}

// ParseFlags parses a comma-separated CLUSTER NODES-style flag list.
func ParseFlags(s string) []NodeFlag {
	var out []NodeFlag
	for _, tok := range strings.Split(s, ",") {
		switch strings.TrimSpace(tok) {
		case "master":
			out = append(out, FlagMaster)
		case "slave":
			out = append(out, FlagSlave)
		case "myself":
			out = append(out, FlagMyself)
		case "fail":
			out = append(out, FlagFail)
		case "fail?":
			out = append(out, FlagPFail)
		case "handshake":
			out = append(out, FlagHandshake)
		case "noaddr":
			out = append(out, FlagNoAddr)
		}
	}
	return out
}

// SlotRange is an inclusive [Start, End] run of owned slots, the unit
// nodes.conf and CLUSTER NODES compress consecutive slots into.
type SlotRange struct {
	Start, End uint16
}

// Node is one member of the cluster, tracked by every other node's
// registry. Grounded on original_source's ClusterNode
// (cluster/node.rs), translated from a HashSet<u16> of owned slots to a
// Go map for the same O(1) membership test.
type Node struct {
	ID          string
	Addr        string // "host:port", empty if unknown
	Flags       []NodeFlag
	MasterID    string // empty unless this node is a replica
	PingSent    int64
	PongRecv    int64
	ConfigEpoch uint64
	LinkState   string // "connected" or "disconnected"
	Slots       map[uint16]struct{}
}

// NewNode creates a node with no flags and an empty slot set.
func NewNode(id, addr string) *Node {
	return &Node{ID: id, Addr: addr, LinkState: "connected", Slots: make(map[uint16]struct{})}
}

// NewMasterNode creates a node flagged as a master.
func NewMasterNode(id, addr string) *Node {
	n := NewNode(id, addr)
	n.Flags = append(n.Flags, FlagMaster)
	return n
}

// NewReplicaNode creates a node flagged as a replica of masterID.
func NewReplicaNode(id, addr, masterID string) *Node {
	n := NewNode(id, addr)
	n.Flags = append(n.Flags, FlagSlave)
	n.MasterID = masterID
	return n
}

func (n *Node) hasFlag(f NodeFlag) bool {
	for _, fl := range n.Flags {
		if fl == f {
			return true
		}
	}
	return false
}

func (n *Node) IsMaster() bool  { return n.hasFlag(FlagMaster) }
func (n *Node) IsReplica() bool { return n.hasFlag(FlagSlave) }
func (n *Node) IsFailed() bool  { return n.hasFlag(FlagFail) }

// AddFlag adds f if not already present.
func (n *Node) AddFlag(f NodeFlag) {
	if !n.hasFlag(f) {
		n.Flags = append(n.Flags, f)
	}
}

// RemoveFlag removes f if present.
func (n *Node) RemoveFlag(f NodeFlag) {
	out := n.Flags[:0]
	for _, fl := range n.Flags {
		if fl != f {
			out = append(out, fl)
		}
	}
	n.Flags = out
}

func (n *Node) flagsString() string {
	parts := make([]string, len(n.Flags))
	for i, f := range n.Flags {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// AddSlot assigns slot to this node's local view of its own ownership.
func (n *Node) AddSlot(slot uint16) { n.Slots[slot] = struct{}{} }

// AddSlotRange assigns every slot in [start, end] inclusive.
func (n *Node) AddSlotRange(start, end uint16) {
	for s := start; ; s++ {
		n.Slots[s] = struct{}{}
		if s == end {
			break
		}
	}
}

// RemoveSlot unassigns slot.
func (n *Node) RemoveSlot(slot uint16) { delete(n.Slots, slot) }

// OwnsSlot reports whether this node's local view claims slot.
func (n *Node) OwnsSlot(slot uint16) bool {
	_, ok := n.Slots[slot]
	return ok
}

// SortedSlots returns the owned slots in ascending order.
func (n *Node) SortedSlots() []uint16 {
	out := make([]uint16, 0, len(n.Slots))
	for s := range n.Slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SlotRanges compresses owned slots into consecutive ranges, the form
// nodes.conf and CLUSTER NODES both serialize.
func (n *Node) SlotRanges() []SlotRange {
	slots := n.SortedSlots()
	if len(slots) == 0 {
		return nil
	}
	var ranges []SlotRange
	start, end := slots[0], slots[0]
	for _, s := range slots[1:] {
		if s == end+1 {
			end = s
			continue
		}
		ranges = append(ranges, SlotRange{start, end})
		start, end = s, s
	}
	ranges = append(ranges, SlotRange{start, end})
	return ranges
}

// ToClusterNodesLine formats this node's CLUSTER NODES row:
// <id> <ip:port> <flags> <master> <ping-sent> <pong-recv> <config-epoch>
// <link-state> <slot> <slot> ... <slot>
func (n *Node) ToClusterNodesLine() string {
	addr := n.Addr
	if addr == "" {
		addr = ":0"
	}
	master := n.MasterID
	if master == "" {
		master = "-"
	}

	var slotTokens []string
	for _, r := range n.SlotRanges() {
		if r.Start == r.End {
			slotTokens = append(slotTokens, fmt.Sprintf("%d", r.Start))
		} else {
			slotTokens = append(slotTokens, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}

	line := fmt.Sprintf("%s %s %s %s %d %d %d %s",
		n.ID, addr, n.flagsString(), master, n.PingSent, n.PongRecv, n.ConfigEpoch, n.LinkState)
	if len(slotTokens) > 0 {
		line += " " + strings.Join(slotTokens, " ")
	}
	return line
}
