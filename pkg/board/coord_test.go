package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelRoundTrip(t *testing.T) {
	for row := 0; row < 20; row++ {
		for col := 0; col < 999; col += 37 { // sampled, not exhaustive
			c := Coord{Row: row, Col: col}
			label := c.Label()
			parsed, err := ParseLabel(label)
			require.NoError(t, err)
			assert.Equal(t, c, parsed, "label %q", label)
		}
	}
}

func TestLabelExamples(t *testing.T) {
	cases := []struct {
		c     Coord
		label string
	}{
		{Coord{0, 0}, "1A"},
		{Coord{19, 24}, "25T"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.label, tc.c.Label())
		parsed, err := ParseLabel(tc.label)
		require.NoError(t, err)
		assert.Equal(t, tc.c, parsed)
	}
}

func TestParseLabelCaseInsensitive(t *testing.T) {
	c, err := ParseLabel("25t")
	require.NoError(t, err)
	assert.Equal(t, Coord{Row: 19, Col: 24}, c)
}

func TestParseLabelRejects(t *testing.T) {
	for _, s := range []string{"", "A1", "1 A", "1", "A", "1-A", "0A"} {
		_, err := ParseLabel(s)
		assert.Error(t, err, "label %q", s)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	const cols = 25
	for row := 0; row < 20; row++ {
		for col := 0; col < cols; col++ {
			c := Coord{Row: row, Col: col}
			idx := c.ToIndex(cols)
			back, err := IndexToCoord(idx, cols)
			require.NoError(t, err)
			assert.Equal(t, c, back)
		}
	}
}

func TestChebyshevAndAdjacent(t *testing.T) {
	c := Coord{Row: 5, Col: 5}
	assert.Equal(t, 0, c.Chebyshev(c))
	assert.Equal(t, 1, c.Chebyshev(Coord{Row: 6, Col: 6}))
	assert.Equal(t, 3, c.Chebyshev(Coord{Row: 8, Col: 5}))
	assert.True(t, c.Adjacent(Coord{Row: 6, Col: 6}))
	assert.False(t, c.Adjacent(c))
	assert.False(t, c.Adjacent(Coord{Row: 7, Col: 5}))
}
