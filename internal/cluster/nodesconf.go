package cluster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SaveNodesConf writes the registry's full node list to path, one line
// per node in CLUSTER NODES format plus a trailing "@<cluster_port>"
// decoration on the address, per spec.md's nodes.conf layout. A
// disabled registry writes nothing, matching
// original/src/cluster/config.rs's save_cluster_config early return.
func (r *Registry) SaveNodesConf(path string) error {
	if !r.enabled {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cluster: open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, n := range r.AllNodes() {
		if _, err := fmt.Fprintln(w, formatNodeConfigLine(n, r.Epoch())); err != nil {
			return fmt.Errorf("cluster: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("cluster: flush %s: %w", path, err)
	}
	return f.Sync()
}

// formatNodeConfigLine mirrors Node.ToClusterNodesLine but uses
// addr@cluster_port (cluster_port = data_port + 10000) instead of the
// bare address, the one field nodes.conf adds over CLUSTER NODES.
func formatNodeConfigLine(n *Node, epoch uint64) string {
	addr := ":0@0"
	if n.Addr != "" {
		if _, portStr, ok := strings.Cut(n.Addr, ":"); ok {
			if port, err := strconv.Atoi(portStr); err == nil {
				addr = fmt.Sprintf("%s@%d", n.Addr, port+10000)
			}
		}
	}
	master := n.MasterID
	if master == "" {
		master = "-"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s %s 0 0 %d connected", n.ID, addr, n.flagsString(), master, epoch)
	for _, sr := range n.SlotRanges() {
		if sr.Start == sr.End {
			fmt.Fprintf(&sb, " %d", sr.Start)
		} else {
			fmt.Fprintf(&sb, " %d-%d", sr.Start, sr.End)
		}
	}
	return sb.String()
}

// LoadNodesConf reads path (if it exists) and reconstructs the node
// registry and slot map; the maximum config epoch encountered becomes
// the registry's current epoch (via SetEpoch). A missing
// file is not an error — a brand-new node has none yet.
func (r *Registry) LoadNodesConf(path string) error {
	if !r.enabled {
		return nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cluster: open %s: %w", path, err)
	}
	defer f.Close()

	var maxEpoch uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n, epoch, ok := parseNodeConfigLine(line)
		if !ok {
			continue
		}
		r.AddNode(n)
		if len(n.Slots) > 0 {
			slots := n.SortedSlots()
			r.AssignSlotsToNode(n.ID, slots)
		}
		if epoch > maxEpoch {
			maxEpoch = epoch
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("cluster: read %s: %w", path, err)
	}
	r.SetEpoch(maxEpoch)
	return nil
}

func parseNodeConfigLine(line string) (*Node, uint64, bool) {
	parts := strings.Fields(line)
	if len(parts) < 8 {
		return nil, 0, false
	}

	id := parts[0]
	addr := ""
	if host, _, ok := strings.Cut(parts[1], "@"); ok && host != ":0" {
		addr = host
	}

	flagsStr := parts[2]
	isMaster := strings.Contains(flagsStr, "master")
	isMyself := strings.Contains(flagsStr, "myself")

	var masterID string
	if parts[3] != "-" {
		masterID = parts[3]
	}

	epoch, _ := strconv.ParseUint(parts[6], 10, 64)

	var n *Node
	switch {
	case isMaster:
		n = NewMasterNode(id, addr)
	case masterID != "":
		n = NewReplicaNode(id, addr, masterID)
	default:
		n = NewMasterNode(id, addr)
	}
	if isMyself {
		n.AddFlag(FlagMyself)
	}

	for _, tok := range parts[8:] {
		if start, end, ok := strings.Cut(tok, "-"); ok {
			s1, err1 := strconv.ParseUint(start, 10, 16)
			s2, err2 := strconv.ParseUint(end, 10, 16)
			if err1 == nil && err2 == nil {
				n.AddSlotRange(uint16(s1), uint16(s2))
			}
		} else if s, err := strconv.ParseUint(tok, 10, 16); err == nil {
			n.AddSlot(uint16(s))
		}
	}

	return n, epoch, true
}
