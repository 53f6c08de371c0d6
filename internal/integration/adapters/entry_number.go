package adapters

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/settlement-recon/backend/internal/application/adapter"
)

// SnowflakeEntryNumbers issues time-ordered ledger entry numbers such as "RET-1849201391738880".
type SnowflakeEntryNumbers struct {
	node *snowflake.Node
}

var _ adapter.EntryNumberGenerator = (*SnowflakeEntryNumbers)(nil)

// NewSnowflakeEntryNumbers creates a generator for the given node id (0-1023).
func NewSnowflakeEntryNumbers(nodeID int64) (*SnowflakeEntryNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &SnowflakeEntryNumbers{node: node}, nil
}

// Next returns a new entry number with the given prefix.
func (g *SnowflakeEntryNumbers) Next(prefix string) string {
	return prefix + "-" + g.node.Generate().String()
}
