package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"farm-agent/core/utils"
)

// Node is one object of the farm hierarchy.
type Node struct {
	// ID is the local identifier, unique among siblings of the same category.
	ID string `json:"id"`
	// Attributes are flattened to single-line strings before hashing.
	Attributes map[string]any `json:"attributes,omitempty"`
	// Error is set when the collector could not read this object.
	Error string `json:"error,omitempty"`
	// Children groups nested objects by category name.
	Children map[string][]Node `json:"children,omitempty"`
}

// Snapshot is one collected view of the farm.
type Snapshot struct {
	Farm        Node      `json:"farm"`
	CollectedAt time.Time `json:"collected_at"`
}

// DecodeSnapshot reads a JSON snapshot. Numbers keep their textual form so
// large identifiers hash the same on every run.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Farm.ID == "" {
		return nil, fmt.Errorf("snapshot has no farm id")
	}
	return &snap, nil
}

// ParseSnapshot decodes a snapshot held in memory.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	return DecodeSnapshot(bytes.NewReader(data))
}

// flatten renders the node's attributes as single-line strings. Quotes are
// kept so that they take part in the digest.
func (n Node) flatten() map[string]string {
	out := make(map[string]string, len(n.Attributes))
	for k, v := range n.Attributes {
		out[k] = utils.SingleLine(utils.ToString(v))
	}
	return out
}

// childCategories returns the category names of the node's children, sorted.
func (n Node) childCategories() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
