package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("actividad eruptiva", "erupt", "explos"))
	assert.False(t, HasAny("dormido", "erupt", "explos"))
	assert.False(t, HasAny("activo"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "anonymous", FirstNonEmpty("", "  ", "anonymous"))
	assert.Equal(t, "ana", FirstNonEmpty(" ana ", "anonymous"))
	assert.Equal(t, "", FirstNonEmpty())
}
