package idperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesSentinelMatching(t *testing.T) {
	err := Wrap(ErrUnsat, "ground: %s", "theory t")
	assert.ErrorIs(t, err, ErrUnsat)
	assert.Contains(t, err.Error(), "ground: theory t")
}

func TestInternal(t *testing.T) {
	err := Internal("bdd ordering violated at node %d", 3)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "bdd ordering violated at node 3")
}

func TestNotYetImplemented(t *testing.T) {
	err := NotYetImplemented("nested aggregate")
	assert.ErrorIs(t, err, ErrNotYetImplemented)
	assert.Contains(t, err.Error(), "nested aggregate")
}

func TestIsUnsat(t *testing.T) {
	assert.True(t, IsUnsat(Wrap(ErrUnsat, "x")))
	assert.False(t, IsUnsat(errors.New("other")))
	assert.False(t, IsUnsat(nil))
}

func TestIsTerminated(t *testing.T) {
	assert.True(t, IsTerminated(ErrTerminated))
	assert.False(t, IsTerminated(ErrUnsat))
}
