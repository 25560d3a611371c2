package style

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestMarker(t *testing.T) {
	assert.Equal(t, lipgloss.Color("208"), Marker("orange").GetForeground())
	assert.Equal(t, lipgloss.Color("8"), Marker("magenta").GetForeground())
	assert.True(t, Marker("red").GetBold())
}
