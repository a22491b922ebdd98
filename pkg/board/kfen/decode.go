package kfen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
)

// Decode parses the full encoding (board rows plus five metadata tokens)
// into a freshly built board and its turn-metadata document.
func Decode(s string) (*board.Board, Document, error) {
	s = stripWhitespace(s)
	fields := strings.Split(s, "/")
	if len(fields) < 6 {
		return nil, Document{}, fmt.Errorf("kfen: expected board rows plus 5 metadata fields, got %d fields", len(fields))
	}
	rowFields, meta := fields[:len(fields)-5], fields[len(fields)-5:]

	b, err := decodeBoard(rowFields)
	if err != nil {
		return nil, Document{}, err
	}

	player, err := parseColorToken(meta[0])
	if err != nil {
		return nil, Document{}, err
	}
	phase, ok := board.ParsePhase(meta[1])
	if !ok {
		return nil, Document{}, fmt.Errorf("kfen: invalid phase token %q", meta[1])
	}

	doc := Document{Player: player, Phase: phase}

	if phase == board.Battle {
		switch action := meta[2]; {
		case action == "[]":
			// attack slot unused
		case action == "pass":
			doc.AttackUsed = true
		default:
			t, err := board.ParseLabel(action)
			if err != nil {
				return nil, Document{}, fmt.Errorf("kfen: invalid battle action token %q: %w", action, err)
			}
			doc.AttackUsed = true
			doc.HasAttackTarget = true
			doc.AttackTarget = t
		}
	} else {
		moves, err := parseMovesToken(meta[2])
		if err != nil {
			return nil, Document{}, err
		}
		doc.Moves = moves
	}

	turnNumber, err := strconv.Atoi(meta[3])
	if err != nil {
		return nil, Document{}, fmt.Errorf("kfen: invalid turn-number token %q", meta[3])
	}
	doc.TurnNumber = turnNumber

	retreats, err := parseRetreatsToken(meta[4])
	if err != nil {
		return nil, Document{}, err
	}
	doc.Retreats = retreats

	return b, doc, nil
}

// DecodeBoard parses the shorter 20-token variant: board rows only, no
// metadata.
func DecodeBoard(s string) (*board.Board, error) {
	fields := strings.Split(stripWhitespace(s), "/")
	return decodeBoard(fields)
}

func stripWhitespace(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func parseColorToken(s string) (board.Color, error) {
	switch s {
	case "N":
		return board.North, nil
	case "S":
		return board.South, nil
	default:
		return 0, fmt.Errorf("kfen: invalid turn token %q", s)
	}
}

type squareSpec struct {
	terrain      board.Terrain
	arsenalOwner board.Color
	occupied     bool
	kind         board.Kind
	owner        board.Color
}

func decodeBoard(rowFields []string) (*board.Board, error) {
	if len(rowFields) == 0 {
		return nil, fmt.Errorf("kfen: no board rows")
	}
	rows := make([][]squareSpec, len(rowFields))
	cols := -1
	for i, rf := range rowFields {
		specs, err := parseRow(rf)
		if err != nil {
			return nil, err
		}
		if cols == -1 {
			cols = len(specs)
		} else if len(specs) != cols {
			return nil, fmt.Errorf("kfen: row %d has %d squares, expected %d", i, len(specs), cols)
		}
		rows[i] = specs
	}

	b, err := board.NewBoard(len(rows), cols)
	if err != nil {
		return nil, err
	}
	for r, specs := range rows {
		for c, sp := range specs {
			coord := board.Coord{Row: r, Col: c}
			if sp.terrain != board.Flat {
				if err := b.SetTerrain(coord, sp.terrain, sp.arsenalOwner); err != nil {
					return nil, err
				}
			}
			if sp.occupied {
				if err := b.PlacePiece(coord, board.NewPiece(sp.kind, sp.owner)); err != nil {
					return nil, err
				}
			}
		}
	}
	return b, nil
}

// parseRow tokenizes one row-token string into one squareSpec per square.
// Square tokens are not fixed-width: a bracketed/braced piece token ("(X)",
// "[X]", "A{X}") counts as a single square despite being several characters.
func parseRow(s string) ([]squareSpec, error) {
	var out []squareSpec
	i := 0
	for i < len(s) {
		switch ch := s[i]; ch {
		case '_':
			out = append(out, squareSpec{terrain: board.Flat})
			i++
		case 'm':
			out = append(out, squareSpec{terrain: board.Mountain})
			i++
		case 'p':
			out = append(out, squareSpec{terrain: board.MountainPass})
			i++
		case 'f':
			out = append(out, squareSpec{terrain: board.Fortress})
			i++
		case 'A', 'a':
			owner := board.North
			if ch == 'a' {
				owner = board.South
			}
			if i+1 < len(s) && s[i+1] == '{' {
				end := strings.IndexByte(s[i+2:], '}')
				if end < 0 {
					return nil, fmt.Errorf("kfen: unterminated arsenal piece in %q", s)
				}
				kind, pieceOwner, err := parsePieceLetter(s[i+2 : i+2+end])
				if err != nil {
					return nil, err
				}
				out = append(out, squareSpec{terrain: board.Arsenal, arsenalOwner: owner, occupied: true, kind: kind, owner: pieceOwner})
				i = i + 2 + end + 1
			} else {
				out = append(out, squareSpec{terrain: board.Arsenal, arsenalOwner: owner})
				i++
			}
		case '(':
			end := strings.IndexByte(s[i+1:], ')')
			if end < 0 {
				return nil, fmt.Errorf("kfen: unterminated mountain-pass piece in %q", s)
			}
			kind, owner, err := parsePieceLetter(s[i+1 : i+1+end])
			if err != nil {
				return nil, err
			}
			out = append(out, squareSpec{terrain: board.MountainPass, occupied: true, kind: kind, owner: owner})
			i = i + 1 + end + 1
		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("kfen: unterminated fortress piece in %q", s)
			}
			kind, owner, err := parsePieceLetter(s[i+1 : i+1+end])
			if err != nil {
				return nil, err
			}
			out = append(out, squareSpec{terrain: board.Fortress, occupied: true, kind: kind, owner: owner})
			i = i + 1 + end + 1
		default:
			kind, owner, err := parsePieceLetter(string(ch))
			if err != nil {
				return nil, fmt.Errorf("kfen: unrecognized square character %q in %q", string(ch), s)
			}
			out = append(out, squareSpec{terrain: board.Flat, occupied: true, kind: kind, owner: owner})
			i++
		}
	}
	return out, nil
}

func parsePieceLetter(s string) (board.Kind, board.Color, error) {
	if len(s) != 1 {
		return board.NoKind, 0, fmt.Errorf("kfen: invalid piece token %q", s)
	}
	r := rune(s[0])
	kind, ok := board.ParseKind(r)
	if !ok {
		return board.NoKind, 0, fmt.Errorf("kfen: invalid piece letter %q", s)
	}
	owner := board.North
	if r >= 'a' && r <= 'z' {
		owner = board.South
	}
	return kind, owner, nil
}

func parseMovesToken(s string) ([]board.Move, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("kfen: malformed actions token %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	var moves []board.Move
	i := 0
	for i < len(inner) {
		if inner[i] != '(' {
			return nil, fmt.Errorf("kfen: malformed move entry in %q", s)
		}
		end := strings.IndexByte(inner[i:], ')')
		if end < 0 {
			return nil, fmt.Errorf("kfen: unterminated move entry in %q", s)
		}
		pair := inner[i+1 : i+end]
		parts := strings.SplitN(pair, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("kfen: malformed move pair %q", pair)
		}
		from, err := board.ParseLabel(parts[0])
		if err != nil {
			return nil, err
		}
		to, err := board.ParseLabel(parts[1])
		if err != nil {
			return nil, err
		}
		moves = append(moves, board.Move{From: from, To: to})
		i += end + 1
		if i < len(inner) && inner[i] == ',' {
			i++
		}
	}
	return moves, nil
}

func parseRetreatsToken(s string) ([]board.Coord, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("kfen: malformed retreats token %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	nums := strings.Split(inner, ",")
	if len(nums)%2 != 0 {
		return nil, fmt.Errorf("kfen: retreats token has an odd number of integers: %q", s)
	}
	coords := make([]board.Coord, 0, len(nums)/2)
	for i := 0; i < len(nums); i += 2 {
		row, err := strconv.Atoi(nums[i])
		if err != nil {
			return nil, fmt.Errorf("kfen: invalid retreat row %q", nums[i])
		}
		col, err := strconv.Atoi(nums[i+1])
		if err != nil {
			return nil, fmt.Errorf("kfen: invalid retreat col %q", nums[i+1])
		}
		coords = append(coords, board.Coord{Row: row, Col: col})
	}
	return coords, nil
}
