package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewColorPrinter_Plain(t *testing.T) {
	p := NewColorPrinter(false)
	assert.False(t, p.Colored)
	assert.Equal(t, "3 keys", p.Success("%d keys", 3))
	assert.Equal(t, "oops", p.Error("oops"))
}

func TestNewColorPrinter_Colored(t *testing.T) {
	p := NewColorPrinter(true)
	assert.True(t, p.Colored)
	assert.Contains(t, p.Warning("pending"), "pending")
}
