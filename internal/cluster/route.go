package cluster

import "fmt"

// Decision is the outcome of routing a request's key(s) against the
// local slot ownership view, per spec.md's six-step routing algorithm.
type Decision int

const (
	// Proceed means the command should run locally.
	Proceed Decision = iota
	// Ask means reply ASK <slot> <addr>; the key belongs to a slot
	// mid-migration to addr and isn't present locally.
	Ask
	// Moved means reply MOVED <slot> <addr>; another node owns the slot.
	Moved
	// CrossSlot means the keys span more than one slot.
	CrossSlot
	// ClusterDown means the slot has no owner.
	ClusterDown
)

// RouteResult is what Route decided, with enough detail to format the
// wire error or proceed.
type RouteResult struct {
	Decision Decision
	Slot     uint16
	Addr     string // target node address for Ask/Moved
}

// Route implements spec.md's routing algorithm:
//  1. Compute each key's slot; mismatched slots across keys is CROSSSLOT.
//  2. Look up the common slot's owner.
//  3. Owned locally and Stable or Migrating: proceed, except that
//     Migrating + key absent locally answers ASK to the migration
//     target (absence is decided by the caller-supplied hasKey, since
//     only the caller knows the keyspace).
//  4. Owned locally and Importing: proceed only if asking.
//  5. Owned by another node: MOVED.
//  6. Unowned: CLUSTERDOWN.
//
// hasKey reports whether key already exists in the local keyspace, used
// to decide the Migrating "absent locally" branch; pass a func that
// always returns true if the caller doesn't need that distinction (e.g.
// a write that will create the key regardless).
func (r *Registry) Route(keys []string, asking bool, hasKey func(key string) bool) (RouteResult, error) {
	if !r.enabled {
		return RouteResult{Decision: Proceed}, nil
	}
	if len(keys) == 0 {
		return RouteResult{Decision: Proceed}, nil
	}

	slot := KeySlot(keys[0])
	for _, k := range keys[1:] {
		if KeySlot(k) != slot {
			return RouteResult{}, fmt.Errorf("CROSSSLOT Keys in request don't hash to the same slot")
		}
	}

	ownerID, assigned := r.SlotNode(slot)
	if !assigned {
		return RouteResult{Decision: ClusterDown, Slot: slot}, nil
	}

	if ownerID == r.myID {
		state, peer := r.GetSlotState(slot)
		switch state {
		case Importing:
			if !asking {
				return r.redirectTo(Moved, ownerID, slot)
			}
			return RouteResult{Decision: Proceed}, nil
		case Migrating:
			if hasKey != nil && !hasKey(keys[0]) {
				return r.redirectTo(Ask, peer, slot)
			}
			return RouteResult{Decision: Proceed}, nil
		default: // Stable
			return RouteResult{Decision: Proceed}, nil
		}
	}

	return r.redirectTo(Moved, ownerID, slot)
}

func (r *Registry) redirectTo(decision Decision, nodeID string, slot uint16) (RouteResult, error) {
	n, ok := r.Node(nodeID)
	if !ok || n.Addr == "" {
		return RouteResult{Decision: ClusterDown, Slot: slot}, nil
	}
	return RouteResult{Decision: decision, Slot: slot, Addr: n.Addr}, nil
}

// Err formats a RouteResult's Ask/Moved/CrossSlot/ClusterDown case as
// the wire error string to send instead of proceeding; callers should
// have already returned early for Decision == Proceed.
func (res RouteResult) Err() string {
	switch res.Decision {
	case Moved:
		return fmt.Sprintf("MOVED %d %s", res.Slot, res.Addr)
	case Ask:
		return fmt.Sprintf("ASK %d %s", res.Slot, res.Addr)
	case CrossSlot:
		return "CROSSSLOT Keys in request don't hash to the same slot"
	case ClusterDown:
		return "CLUSTERDOWN Hash slot not served"
	default:
		return ""
	}
}
