package domain

import "fmt"

// Chunk is a closed block interval scanned as one unit.
type Chunk struct {
	From uint64
	To   uint64
}

// Size returns the number of blocks in the chunk.
func (c Chunk) Size() uint64 {
	if c.To < c.From {
		return 0
	}
	return c.To - c.From + 1
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d,%d]", c.From, c.To)
}
