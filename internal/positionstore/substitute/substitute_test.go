package substitute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sbditto85/eventide-go/internal/positionstore"
	"github.com/sbditto85/eventide-go/internal/positionstore/substitute"
)

func TestStore_GetReturnsDefaultWhenUnseeded(t *testing.T) {
	s := substitute.NewStore(nil)

	assert.Equal(t, positionstore.DefaultPosition, s.Get())
}

func TestStore_GetReturnsSeededPosition(t *testing.T) {
	s := substitute.NewStore(nil)
	s.SetPosition(42)

	assert.Equal(t, uint64(42), s.Get())
}

func TestStore_PutIncrementsPutCountOnly(t *testing.T) {
	s := substitute.NewStore(nil)
	s.SetPosition(10)

	s.Put(11)
	s.Put(12)

	assert.Equal(t, uint64(2), s.PutCount())
	assert.Equal(t, uint64(10), s.Get())
}

func TestStore_GetIncrementsGetCount(t *testing.T) {
	s := substitute.NewStore(nil)

	s.Get()
	s.Get()
	s.Get()

	assert.Equal(t, uint64(3), s.GetCount())
}
