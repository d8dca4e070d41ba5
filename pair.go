package flowz

import "fmt"

// Pair is the element type emitted by Zip: one element from each inlet,
// matched positionally.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}
