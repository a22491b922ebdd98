package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStats(t *testing.T) {
	cases := []struct {
		kind  Kind
		stats Stats
	}{
		{Infantry, Stats{Attack: 4, Defense: 6, Movement: 1, Range: 2}},
		{Cavalry, Stats{Attack: 4, Defense: 5, Movement: 2, Range: 2}},
		{Cannon, Stats{Attack: 5, Defense: 8, Movement: 1, Range: 3}},
		{SwiftCannon, Stats{Attack: 5, Defense: 8, Movement: 2, Range: 3}},
		{Relay, Stats{Attack: 0, Defense: 1, Movement: 1, Range: 0}},
		{SwiftRelay, Stats{Attack: 0, Defense: 1, Movement: 2, Range: 0}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.stats, tc.kind.Stats(), tc.kind)
		assert.True(t, tc.kind.IsValid())
	}
}

func TestKindStatsPanicsForNoKind(t *testing.T) {
	assert.Panics(t, func() { NoKind.Stats() })
}

func TestParseKind(t *testing.T) {
	for r, want := range map[rune]Kind{
		'i': Infantry, 'I': Infantry,
		'c': Cavalry, 'C': Cavalry,
		'k': Cannon, 'K': Cannon,
		'w': SwiftCannon, 'W': SwiftCannon,
		'r': Relay, 'R': Relay,
		'x': SwiftRelay, 'X': SwiftRelay,
	} {
		got, ok := ParseKind(r)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParseKind('z')
	assert.False(t, ok)
}

func TestRelayAndCavalryPredicates(t *testing.T) {
	assert.True(t, Relay.IsRelay())
	assert.True(t, SwiftRelay.IsRelay())
	assert.False(t, Infantry.IsRelay())
	assert.True(t, Cavalry.IsCavalry())
	assert.False(t, Infantry.IsCavalry())
}
