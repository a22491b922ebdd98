package board

import "strings"

// InitialEncoding is the default starting position shipped with the engine:
// a symmetric, illustrative layout exercising every piece kind and terrain
// feature. No original_source data file ships a canonical historical
// starting position (only code and build files were retrieved), so this is
// a documented default, not a historically exact one — front-ends that need
// a specific historical layout supply their own via a loaded document.
//
// It is a full board-only compact encoding (pkg/board/kfen's grammar)
// including default turn-state metadata: NORTH to move, turn 1, Movement
// phase, no moves yet, no pending retreats.
var InitialEncoding = buildInitialEncoding()

func flat(n int) string { return strings.Repeat("_", n) }

func buildInitialEncoding() string {
	rows := []string{
		flat(12) + "A{R}" + flat(12),
		flat(4) + "X" + flat(3) + "K" + flat(1) + "IICII" + flat(1) + "W" + flat(8),
		flat(25),
		flat(3) + "m" + flat(17) + "p" + flat(3),
		flat(25),
		flat(25),
		flat(6) + "f" + flat(18),
		flat(25),
		flat(25),
		flat(25),
		flat(25),
		flat(25),
		flat(25),
		flat(6) + "f" + flat(18),
		flat(25),
		flat(25),
		flat(3) + "m" + flat(17) + "p" + flat(3),
		flat(25),
		flat(4) + "x" + flat(3) + "k" + flat(1) + "iicii" + flat(1) + "w" + flat(8),
		flat(12) + "a{r}" + flat(12),
	}
	return strings.Join(rows, "/") + "/N/M/[]/1/[]"
}
