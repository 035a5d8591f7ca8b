package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/randengine"
)

func TestChoiceReproducible(t *testing.T) {
	a := randengine.New(42)
	b := randengine.New(42)
	for i := 0; i < 100; i++ {
		x := a.Choice(4)
		assert.Equal(t, x, b.Choice(4))
		assert.GreaterOrEqual(t, x, 0)
		assert.Less(t, x, 4)
	}
	assert.Equal(t, -1, a.Choice(0))
}
