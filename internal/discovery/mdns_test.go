package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalName(t *testing.T) {
	assert.Equal(t, "haca.local", LocalName("haca"))
	assert.Equal(t, "haca.local", LocalName("haca.local."))
	assert.Equal(t, "", LocalName("  "))
}

func TestAnnounceRejectsEmptyName(t *testing.T) {
	_, err := Announce("")
	assert.Error(t, err)
}
