package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var knownCapabilities = []string{
	"carrier_vetting",
	"carrier_search",
	"carrier_outreach",
	"data_transformer",
	"freight_insights",
}

func TestResolveCapability_FromNodeID(t *testing.T) {
	id, ok := ResolveCapability(Node{ID: "carrier_vetting_1", Type: NodeTypeCustom}, knownCapabilities)
	assert.True(t, ok)
	assert.Equal(t, "carrier_vetting", id)
}

func TestResolveCapability_FromLabel(t *testing.T) {
	node := Node{
		ID:   "n1",
		Type: NodeTypeCustom,
		Data: map[string]any{"label": "Carrier Vetting"},
	}
	id, ok := ResolveCapability(node, knownCapabilities)
	assert.True(t, ok)
	assert.Equal(t, "carrier_vetting", id)
}

func TestResolveCapability_ExplicitFieldWins(t *testing.T) {
	node := Node{
		ID:   "carrier_search_9",
		Type: NodeTypeCustom,
		Data: map[string]any{"capability_id": "carrier_outreach"},
	}
	id, ok := ResolveCapability(node, knownCapabilities)
	assert.True(t, ok)
	assert.Equal(t, "carrier_outreach", id)
}

func TestResolveCapability_ExplicitUnknownFails(t *testing.T) {
	node := Node{
		ID:   "carrier_search_9",
		Type: NodeTypeCustom,
		Data: map[string]any{"capability_id": "no_such_capability"},
	}
	_, ok := ResolveCapability(node, knownCapabilities)
	assert.False(t, ok, "an explicit unknown id must not fall back to string matching")
}

func TestResolveCapability_DirectTypeAlias(t *testing.T) {
	id, ok := ResolveCapability(Node{ID: "n5", Type: "carrier_vetting"}, knownCapabilities)
	assert.True(t, ok)
	assert.Equal(t, "carrier_vetting", id)
}

func TestResolveCapability_UnknownCustomNode(t *testing.T) {
	node := Node{ID: "n2", Type: NodeTypeCustom, Data: map[string]any{"label": "Mystery Step"}}
	_, ok := ResolveCapability(node, knownCapabilities)
	assert.False(t, ok)
}

func TestResolveCapability_UnknownTypeAlias(t *testing.T) {
	_, ok := ResolveCapability(Node{ID: "n3", Type: "nonsense"}, knownCapabilities)
	assert.False(t, ok)
}

func TestResolveCapability_LongerIDWinsOverlap(t *testing.T) {
	known := []string{"search", "carrier_search"}
	id, ok := ResolveCapability(Node{ID: "carrier_search_1", Type: NodeTypeCustom}, known)
	assert.True(t, ok)
	assert.Equal(t, "carrier_search", id)
}
