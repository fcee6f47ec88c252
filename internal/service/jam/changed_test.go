package jam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func changedFromBits(bits int) Changed {
	return Changed{
		Users:       bits&1 != 0,
		Songs:       bits&2 != 0,
		Votes:       bits&4 != 0,
		Ended:       bits&8 != 0,
		Position:    bits&16 != 0,
		CurrentSong: bits&32 != 0,
	}
}

func TestChangedMergeLaws(t *testing.T) {
	for i := range 64 {
		a := changedFromBits(i)
		assert.Equal(t, a, a.Merge(a), "idempotent")
		for j := range 64 {
			b := changedFromBits(j)
			assert.Equal(t, a.Merge(b), b.Merge(a), "commutative")
			for k := 0; k < 64; k += 7 {
				c := changedFromBits(k)
				assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)), "associative")
			}
		}
	}
}

func TestChangedAny(t *testing.T) {
	assert.False(t, Changed{}.Any())
	assert.True(t, Changed{Ended: true}.Any())
	assert.True(t, AllChanged().Any())
	assert.False(t, AllChanged().Ended)
}
