package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, uuid.Version(7), id.Version())

	other, err := NewRandom()
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), other.Version())
	assert.NotEqual(t, id, other)
}
