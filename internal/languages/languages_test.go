package languages

import (
	"testing"

	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	l, err := Find("fa")
	require.NoError(t, err)
	assert.Equal(t, "fa-IR", l.Locale)

	_, err = Find("xx")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSupportedIsACopy(t *testing.T) {
	s := Supported()
	s[0].Code = "zz"
	assert.Equal(t, "de", Supported()[0].Code)
	for _, l := range Supported() {
		assert.True(t, l.Valid(), l.Code)
	}
}

func TestResolveFallsBackToBareCode(t *testing.T) {
	assert.Equal(t, "English", Resolve("en").Label)

	bare := Resolve("it")
	assert.Equal(t, "it", bare.Code)
	assert.Equal(t, "it", bare.Label)
	assert.Equal(t, "it", bare.Locale)
}
