package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtteranceObject(t *testing.T) {
	assert.Equal(t, "utterances/r1/abc.wav", UtteranceObject("r1", "abc"))
}
