package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pangents/orchestrator/types"
)

func TestValidate(t *testing.T) {
	known := []string{"carrier_vetting", "carrier_search"}

	t.Run("valid graph", func(t *testing.T) {
		def := &Definition{
			Name: "vet",
			Nodes: []Node{
				{ID: "t1", Type: NodeTypeTrigger},
				{ID: "n1", Type: NodeTypeCustom, Data: map[string]any{"capability_id": "carrier_vetting"}},
			},
			Edges: []Edge{{Source: "t1", Target: "n1"}},
		}
		assert.Nil(t, Validate(def, known))
	})

	t.Run("nil definition", func(t *testing.T) {
		err := Validate(nil, known)
		require.NotNil(t, err)
		assert.Equal(t, types.ErrMalformedGraph, err.Code)
	})

	t.Run("node without id", func(t *testing.T) {
		def := &Definition{Nodes: []Node{{Type: NodeTypeTrigger}}}
		err := Validate(def, known)
		require.NotNil(t, err)
		assert.Equal(t, types.ErrMalformedGraph, err.Code)
	})

	t.Run("duplicate node id", func(t *testing.T) {
		def := &Definition{Nodes: []Node{
			{ID: "n1", Type: NodeTypeTrigger},
			{ID: "n1", Type: NodeTypeOutput},
		}}
		err := Validate(def, known)
		require.NotNil(t, err)
		assert.Contains(t, err.Message, "duplicate")
	})

	t.Run("explicit unknown capability fails hard", func(t *testing.T) {
		def := &Definition{Nodes: []Node{
			{ID: "n1", Type: NodeTypeCustom, Data: map[string]any{"capability_id": "no_such"}},
		}}
		err := Validate(def, known)
		require.NotNil(t, err)
		assert.Equal(t, types.ErrMalformedGraph, err.Code)
		assert.Equal(t, "n1", err.NodeID)
		assert.Equal(t, 422, err.HTTPStatus)
	})

	t.Run("convention-based nodes stay lenient", func(t *testing.T) {
		// No explicit capability_id: an unresolvable node is skipped at run
		// time, not rejected at save time.
		def := &Definition{Nodes: []Node{
			{ID: "mystery_node", Type: NodeTypeCustom, Data: map[string]any{"label": "Mystery"}},
		}}
		assert.Nil(t, Validate(def, known))
	})
}
