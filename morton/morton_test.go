package morton

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		x := uint32(rng.Intn(MaxCoord + 1))
		y := uint32(rng.Intn(MaxCoord + 1))
		z := uint32(rng.Intn(MaxCoord + 1))

		code := Encode(x, y, z)
		gx, gy, gz := Decode(code)

		assert.Equal(t, x, gx)
		assert.Equal(t, y, gy)
		assert.Equal(t, z, gz)
	}
}

func TestEncodeZero(t *testing.T) {
	assert.Equal(t, uint64(0), Encode(0, 0, 0))
}

func TestEncodeBitPlacement(t *testing.T) {
	assert.Equal(t, uint64(1), Encode(1, 0, 0))
	assert.Equal(t, uint64(2), Encode(0, 1, 0))
	assert.Equal(t, uint64(4), Encode(0, 0, 1))
}

func TestLessMatchesUint64Order(t *testing.T) {
	assert.True(t, Less(Encode(0, 0, 0), Encode(1, 0, 0)))
	assert.False(t, Less(Encode(1, 0, 0), Encode(0, 0, 0)))
}

func TestOrderMatchesChildIndexDefinition(t *testing.T) {
	// child index order: child = (z<<2)|(y<<1)|x must match the order in
	// which Morton codes visit the 8 octants of depth 1.
	type coord struct{ x, y, z uint32 }
	corners := []coord{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	}
	for i, c := range corners {
		childIndex := int(c.z)<<2 | int(c.y)<<1 | int(c.x)
		assert.Equal(t, i, childIndex)
		assert.Equal(t, uint64(i), Encode(c.x, c.y, c.z))
	}
}
