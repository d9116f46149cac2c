package uid

import (
	"errors"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// maxNode is the largest node number with snowflake's default 10 node bits.
const maxNode int64 = 1023

// ErrNodeOutOfRange is returned when a configured node number exceeds 10 bits.
var ErrNodeOutOfRange = errors.New("uid: snowflake node must be between 0 and 1023")

// Snowflake generates 63-bit, time-ordered row identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for node. A negative node derives the
// number from the hostname so replicas rarely collide without configuration.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 {
		node = hostNode()
	}
	if node > maxNode {
		return nil, ErrNodeOutOfRange
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next identifier.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func hostNode() int64 {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return 0
	}

	h := fnv.New32a()
	h.Write([]byte(host))

	return int64(h.Sum32()) % (maxNode + 1)
}
