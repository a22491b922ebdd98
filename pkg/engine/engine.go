// Package engine owns a single game in progress: the board, the turn/phase
// state machine, the reversible action log, and the per-player network
// views the turn controller consumes but does not cache itself. It is the
// single synchronization point a front-end (a line protocol, a console, a
// test) drives through.
package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/seekerror/build"
	"github.com/seekerror/logw"

	"github.com/ssjmarx/pykrieg-go/pkg/actionlog"
	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/board/kfen"
	"github.com/ssjmarx/pykrieg-go/pkg/combat"
	"github.com/ssjmarx/pykrieg-go/pkg/kriegerr"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
	"github.com/ssjmarx/pykrieg-go/pkg/record"
	"github.com/ssjmarx/pykrieg-go/pkg/turn"
	"github.com/ssjmarx/pykrieg-go/pkg/victory"
)

// Version identifies this build of the engine.
var Version = build.NewVersion(1, 0, 0)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithUndoLimit caps the action log's history length. 0, the default, means
// unlimited.
func WithUndoLimit(n int) Option {
	return func(e *Engine) { e.undoLimit = n }
}

// Engine is a single game instance, guarded by a mutex so that a
// line-oriented front-end can dispatch commands from one goroutine while a
// query runs from another without racing the board.
type Engine struct {
	name, author string
	undoLimit    int

	mu sync.Mutex

	b    *board.Board
	turn *turn.State
	log  *actionlog.Log

	views map[board.Color]*network.View
	// networkComputed is true once at least one view has been computed
	// against the current board generation. victory.IsNetworkCollapsed must
	// not fire before a network has ever been evaluated.
	networkComputed bool
}

// New constructs an Engine and resets it to the default starting position.
func New(ctx context.Context, name, author string, opts ...Option) *Engine {
	e := &Engine{name: name, author: author}
	for _, opt := range opts {
		opt(e)
	}
	e.log = actionlog.NewLog(e.undoLimit)

	logw.Infof(ctx, "Engine %v (%v) %v initialized", name, author, Version)
	if err := e.Reset(ctx, "startpos"); err != nil {
		logw.Errorf(ctx, "Initial reset failed: %v", err)
	}
	return e
}

func (e *Engine) Name() string   { return e.name }
func (e *Engine) Author() string { return e.author }

// SetUndoLimit changes the action log's history cap going forward. It does
// not retroactively trim existing history.
func (e *Engine) SetUndoLimit(ctx context.Context, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.undoLimit = n
	e.log.SetMaxHistory(n)
	logw.Infof(ctx, "Undo limit set to %d", n)
}

// Board returns the live board. Callers must treat it as read-only: mutate
// it only through Engine methods, which keep the turn state and action log
// in sync with it.
func (e *Engine) Board() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.b
}

func (e *Engine) invalidateViews() {
	e.views = nil
	e.networkComputed = false
}

func (e *Engine) view(c board.Color) *network.View {
	if e.views == nil {
		e.views = map[board.Color]*network.View{}
	}
	if v, ok := e.views[c]; ok {
		return v
	}
	v := network.Compute(e.b, c)
	e.views[c] = v
	e.networkComputed = true
	return v
}

// Reset replaces the live game with the position named by pos: "startpos"
// for the default starting layout, or a full board-only compact encoding
// (board rows plus the five turn-metadata tokens) to resume at an arbitrary
// position. Clears the action log.
func (e *Engine) Reset(ctx context.Context, pos string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	encoding := pos
	if pos == "" || pos == "startpos" {
		encoding = board.InitialEncoding
	}

	b, doc, err := kfen.Decode(encoding)
	if err != nil {
		return kriegerr.Wrap(kriegerr.Serialization, err, "engine: reset")
	}

	s := turn.NewState()
	s.CurrentPlayer = doc.Player
	s.Phase = doc.Phase
	s.TurnNumber = doc.TurnNumber
	s.MovesMade = doc.Moves
	for _, m := range doc.Moves {
		if sq, err := b.At(m.To); err == nil && sq.Occupied {
			s.MovedPieces[sq.Occupant.ID] = true
		}
	}
	if doc.Phase == board.Battle {
		s.Attack = turn.AttackSlot{Used: doc.AttackUsed, HasTarget: doc.HasAttackTarget, Target: doc.AttackTarget}
	}
	for _, c := range doc.Retreats {
		s.RetreatingNow[c] = true
	}

	e.b = b
	e.turn = s
	e.log.Clear()
	e.invalidateViews()

	logw.Infof(ctx, "Engine reset: turn %d, %v to move, %v phase", s.TurnNumber, s.CurrentPlayer, s.Phase)
	return nil
}

// LoadDocument replaces the live game with a validated game-record
// document. The action log is cleared: a loaded document carries only how
// many actions were undoable/redoable (record.UndoRedoCursor), not their
// content, so undo/redo is unavailable until new actions accumulate.
func (e *Engine) LoadDocument(ctx context.Context, doc *record.Document) error {
	if err := record.Validate(doc); err != nil {
		return kriegerr.Wrap(kriegerr.Serialization, err, "engine: load document")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := kfen.DecodeBoard(doc.BoardInfo.Board)
	if err != nil {
		return kriegerr.Wrap(kriegerr.Serialization, err, "engine: load document")
	}
	player, ok := board.ParseColor(doc.GameState.CurrentPlayer)
	if !ok {
		return kriegerr.New(kriegerr.Serialization, "engine: load document: invalid current player %q", doc.GameState.CurrentPlayer)
	}
	var phase board.Phase
	switch doc.GameState.CurrentPhase {
	case "MOVEMENT":
		phase = board.Movement
	case "BATTLE":
		phase = board.Battle
	default:
		return kriegerr.New(kriegerr.Serialization, "engine: load document: invalid phase %q", doc.GameState.CurrentPhase)
	}
	state, ok := board.ParseGameState(doc.Metadata.Result)
	if !ok {
		return kriegerr.New(kriegerr.Serialization, "engine: load document: invalid result %q", doc.Metadata.Result)
	}

	s := turn.NewState()
	s.CurrentPlayer = player
	s.Phase = phase
	s.TurnNumber = doc.GameState.TurnNumber
	s.GameState = state
	for _, r := range doc.GameState.PendingRetreats {
		s.MustRetreat[board.Coord{Row: r.Row, Col: r.Col}] = true
	}

	e.b = b
	e.turn = s
	e.log.Clear()
	e.invalidateViews()

	logw.Infof(ctx, "Engine loaded document %q: turn %d, %v to move", doc.Metadata.GameName, s.TurnNumber, s.CurrentPlayer)
	return nil
}

// Document renders the live game as a savable game-record document. meta is
// copied into the saved Metadata verbatim except Result, which is always
// taken from the live game state.
func (e *Engine) Document(ctx context.Context, meta record.Metadata) *record.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta.Result = e.turn.GameState.String()

	retreats := make([]record.RetreatSquare, 0, len(e.turn.MustRetreat)+len(e.turn.RetreatingNow))
	for c := range e.turn.MustRetreat {
		retreats = append(retreats, record.RetreatSquare{Row: c.Row, Col: c.Col})
	}
	for c := range e.turn.RetreatingNow {
		retreats = append(retreats, record.RetreatSquare{Row: c.Row, Col: c.Col})
	}

	phase := "MOVEMENT"
	if e.turn.Phase == board.Battle {
		phase = "BATTLE"
	}

	return &record.Document{
		FormatVersion: record.FormatVersion,
		Metadata:      meta,
		BoardInfo: record.BoardInfo{
			Rows:  e.b.Rows(),
			Cols:  e.b.Cols(),
			Board: kfen.EncodeBoard(e.b),
		},
		GameState: record.GameState{
			TurnNumber:      e.turn.TurnNumber,
			CurrentPlayer:   e.turn.CurrentPlayer.String(),
			CurrentPhase:    phase,
			PendingRetreats: retreats,
		},
		UndoRedoState: &record.UndoRedoCursor{
			HistorySize: e.log.HistorySize(),
			UndoDepth:   e.log.UndoDepth(),
			RedoDepth:   e.log.RedoDepth(),
		},
	}
}

// Position renders the live board as a full board-only compact encoding
// (board rows plus turn metadata).
func (e *Engine) Position(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() string {
	doc := kfen.Document{
		Player:     e.turn.CurrentPlayer,
		Phase:      e.turn.Phase,
		Moves:      e.turn.MovesMade,
		TurnNumber: e.turn.TurnNumber,
	}
	if e.turn.Phase == board.Battle {
		doc.AttackUsed = e.turn.Attack.Used
		doc.HasAttackTarget = e.turn.Attack.HasTarget
		doc.AttackTarget = e.turn.Attack.Target
	}
	for c := range e.turn.MustRetreat {
		doc.Retreats = append(doc.Retreats, c)
	}
	for c := range e.turn.RetreatingNow {
		doc.Retreats = append(doc.Retreats, c)
	}
	return kfen.Encode(e.b, doc)
}

// MoveReport summarizes the outcome of a single move for a caller that
// needs more than pass/fail, e.g. the line protocol's "move" response.
type MoveReport struct {
	From, To         board.Coord
	ArsenalDestroyed bool
	ArsenalOwner     board.Color
	TurnEnded        bool
}

// Move executes a single move for the player to act, from and to given as
// spreadsheet-style square labels. Moving onto an enemy arsenal ends the
// turn immediately, per the movement rules.
func (e *Engine) Move(ctx context.Context, fromLabel, toLabel string) (MoveReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from, err := board.ParseLabel(fromLabel)
	if err != nil {
		return MoveReport{}, kriegerr.Wrap(kriegerr.Precondition, err, "engine: move")
	}
	to, err := board.ParseLabel(toLabel)
	if err != nil {
		return MoveReport{}, kriegerr.Wrap(kriegerr.Precondition, err, "engine: move")
	}

	sq, err := e.b.At(from)
	if err != nil {
		return MoveReport{}, kriegerr.Wrap(kriegerr.Precondition, err, "engine: move")
	}
	piece := sq.Occupant
	wasRetreat := e.turn.RetreatingNow[from]

	view := e.view(e.turn.CurrentPlayer)
	res, turnEnded, err := e.turn.ExecuteMove(e.b, view, from, to)
	if err != nil {
		return MoveReport{}, kriegerr.Wrap(kriegerr.RuleViolation, err, "engine: move")
	}
	e.invalidateViews()

	e.log.Record(actionlog.Action{
		Kind: actionlog.MoveKind,
		Move: &actionlog.MoveAction{
			From: from, To: to,
			PieceID: piece.ID, PieceKind: piece.Kind, Owner: piece.Owner,
			WasRetreat:       wasRetreat,
			ArsenalDestroyed: res.ArsenalDestroyed,
			ArsenalOwner:     res.ArsenalOwner,
		},
	})

	logw.Infof(ctx, "%v moves %v -> %v", piece.Owner, from, to)
	if res.ArsenalDestroyed {
		logw.Infof(ctx, "%v's arsenal at %v is destroyed", res.ArsenalOwner, to)
	}

	e.refreshVictoryLocked(ctx)

	if turnEnded && !e.turn.GameState.IsTerminal() {
		if _, err := e.endTurnLocked(ctx); err != nil {
			return MoveReport{}, kriegerr.Wrap(kriegerr.Consistency, err, "engine: move: auto end turn")
		}
	}
	return MoveReport{From: from, To: to, ArsenalDestroyed: res.ArsenalDestroyed, ArsenalOwner: res.ArsenalOwner, TurnEnded: turnEnded}, nil
}

// AttackReport summarizes the outcome of a single attack resolution.
type AttackReport struct {
	Target        board.Coord
	Outcome       combat.Outcome
	Attack        int
	Defense       int
	Captured      bool
	CapturedKind  board.Kind
	CapturedOwner board.Color
}

// Attack resolves an attack against the named target square, consuming the
// turn's single attack-or-pass slot.
func (e *Engine) Attack(ctx context.Context, targetLabel string) (AttackReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := board.ParseLabel(targetLabel)
	if err != nil {
		return AttackReport{}, kriegerr.Wrap(kriegerr.Precondition, err, "engine: attack")
	}

	attacker := e.turn.CurrentPlayer
	defender := attacker.Opponent()
	attackerView := e.view(attacker)
	defenderView := e.view(defender)

	res, err := e.turn.ExecuteAttack(e.b, attackerView, defenderView, t, defender)
	if err != nil {
		return AttackReport{}, kriegerr.Wrap(kriegerr.RuleViolation, err, "engine: attack")
	}
	e.invalidateViews()

	a := &actionlog.AttackAction{Target: t, Outcome: res.Outcome, Attacker: attacker}
	if res.Captures {
		a.HasCaptured = true
		a.CapturedKind = res.Captured.Kind
		a.CapturedOwner = res.Captured.Owner
	}
	if res.Outcome == combat.Retreat {
		a.RetreatPositions = []board.Coord{t}
	}
	e.log.Record(actionlog.Action{Kind: actionlog.AttackKind, Attack: a})

	logw.Infof(ctx, "%v attacks %v: %v (attack %d, defense %d)", attacker, t, res.Outcome, res.Attack, res.Defense)
	e.refreshVictoryLocked(ctx)

	report := AttackReport{Target: t, Outcome: res.Outcome, Attack: res.Attack, Defense: res.Defense}
	if res.Captures {
		report.Captured = true
		report.CapturedKind = res.Captured.Kind
		report.CapturedOwner = res.Captured.Owner
	}
	return report, nil
}

// Pass consumes the turn's attack slot without attacking.
func (e *Engine) Pass(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	attacker := e.turn.CurrentPlayer
	if err := e.turn.Pass(); err != nil {
		return kriegerr.Wrap(kriegerr.RuleViolation, err, "engine: pass")
	}
	e.log.Record(actionlog.Action{Kind: actionlog.AttackKind, Attack: &actionlog.AttackAction{Attacker: attacker, Passed: true}})

	logw.Infof(ctx, "%v passes", attacker)
	return nil
}

// SwitchPhase transitions from Movement to Battle within the current turn.
// The only other direction, Battle -> Movement, happens only via EndTurn.
func (e *Engine) SwitchPhase(ctx context.Context, phase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch phase {
	case "battle":
		// the only supported transition; fall through
	case "movement":
		return kriegerr.New(kriegerr.Precondition, "engine: switch phase only accepts battle; movement is reached via end_turn")
	default:
		return kriegerr.New(kriegerr.Precondition, "engine: unknown phase %q", phase)
	}
	if err := e.turn.SwitchToBattle(); err != nil {
		return kriegerr.Wrap(kriegerr.RuleViolation, err, "engine: switch phase")
	}

	logw.Infof(ctx, "%v switches to battle phase", e.turn.CurrentPlayer)
	return nil
}

// EndTurn advances to the opponent's turn, resolving that player's pending
// retreats, and returns every piece that resolution captured.
func (e *Engine) EndTurn(ctx context.Context) ([]turn.RetreatCapture, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endTurnLocked(ctx)
}

func (e *Engine) endTurnLocked(ctx context.Context) ([]turn.RetreatCapture, error) {
	nextPlayer := e.turn.CurrentPlayer.Opponent()
	nextView := e.view(nextPlayer)

	boundary, captures, err := e.turn.EndTurn(e.b, nextView)
	if err != nil {
		return nil, kriegerr.Wrap(kriegerr.RuleViolation, err, "engine: end turn")
	}
	e.invalidateViews()

	e.log.Record(actionlog.Action{
		Kind:         actionlog.TurnBoundaryKind,
		TurnBoundary: &actionlog.TurnBoundaryAction{Boundary: boundary, RetreatCaptures: captures},
	})

	logw.Infof(ctx, "turn %d (%v) ends; turn %d begins for %v", boundary.PriorTurnNumber, boundary.PriorPlayer, boundary.NextTurnNumber, boundary.NextPlayer)
	for _, c := range captures {
		logw.Infof(ctx, "%v's %v at %v is captured by unresolved retreat", c.Piece.Owner, c.Piece.Kind, c.Coord)
	}

	e.refreshVictoryLocked(ctx)
	return captures, nil
}

// Surrender ends the game immediately in the opponent's favor. It overrides
// any other in-progress state.
func (e *Engine) Surrender(ctx context.Context, player string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := board.ParseColor(strings.ToUpper(player))
	if !ok {
		return kriegerr.New(kriegerr.Precondition, "engine: unknown player %q", player)
	}
	if e.turn.GameState.IsTerminal() {
		return kriegerr.New(kriegerr.Precondition, "engine: game is already over (%v)", e.turn.GameState)
	}

	res := victory.Surrender(p)
	e.turn.GameState = res.State

	logw.Infof(ctx, "%v", res.Details)
	return nil
}

// Undo reverses up to count actions (count <= 0 means 1), stopping early if
// the history is exhausted, and returns how many were actually undone.
func (e *Engine) Undo(ctx context.Context, count int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rewind(ctx, count, e.log.Undo, "undo")
}

// Redo re-applies up to count previously undone actions and returns how
// many were actually redone.
func (e *Engine) Redo(ctx context.Context, count int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rewind(ctx, count, e.log.Redo, "redo")
}

func (e *Engine) rewind(ctx context.Context, count int, step func(*board.Board, *turn.State) (actionlog.Action, error), name string) (int, error) {
	if count <= 0 {
		count = 1
	}
	n := 0
	for ; n < count; n++ {
		if _, err := step(e.b, e.turn); err != nil {
			if n == 0 {
				return 0, kriegerr.Wrap(kriegerr.Precondition, err, "engine: %v", name)
			}
			break
		}
	}
	e.invalidateViews()
	e.refreshVictoryLocked(ctx)

	logw.Infof(ctx, "%v x%d", name, n)
	return n, nil
}

// StatusReport summarizes the live game for a status query.
type StatusReport struct {
	TurnNumber    int
	CurrentPlayer board.Color
	Phase         board.Phase
	MovesMade     int
	AttackUsed    bool
	GameState     board.GameState
	Position      string
}

// Status reports the live turn and game state.
func (e *Engine) Status(ctx context.Context) StatusReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StatusReport{
		TurnNumber:    e.turn.TurnNumber,
		CurrentPlayer: e.turn.CurrentPlayer,
		Phase:         e.turn.Phase,
		MovesMade:     len(e.turn.MovesMade),
		AttackUsed:    e.turn.Attack.Used,
		GameState:     e.turn.GameState,
		Position:      e.positionLocked(),
	}
}

// Network reports the named player's current line-of-communication view.
func (e *Engine) Network(ctx context.Context, player string) (*network.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := board.ParseColor(strings.ToUpper(player))
	if !ok {
		return nil, kriegerr.New(kriegerr.Precondition, "engine: unknown player %q", player)
	}
	return e.view(p), nil
}

// Victory evaluates the current victory conditions without mutating state.
// Once the game is over it reports the stored terminal state and its winner;
// the condition that decided it is not kept, so Condition is NoCondition.
func (e *Engine) Victory(ctx context.Context) victory.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.turn.GameState.IsTerminal() {
		res := victory.Result{State: e.turn.GameState}
		switch e.turn.GameState {
		case board.NorthWins:
			res.Winner, res.HasWinner = board.North, true
		case board.SouthWins:
			res.Winner, res.HasWinner = board.South, true
		}
		return res
	}
	return victory.Evaluate(e.b, e.view(board.North), e.view(board.South), e.networkComputed)
}

// Retreats lists every square with a pending retreat obligation: squares
// not yet known to have a legal destination (MustRetreat) and squares
// currently discharging one (RetreatingNow).
func (e *Engine) Retreats(ctx context.Context) []board.Coord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]board.Coord, 0, len(e.turn.MustRetreat)+len(e.turn.RetreatingNow))
	for c := range e.turn.MustRetreat {
		out = append(out, c)
	}
	for c := range e.turn.RetreatingNow {
		out = append(out, c)
	}
	return out
}

func (e *Engine) refreshVictoryLocked(ctx context.Context) {
	if e.turn.GameState.IsTerminal() {
		return
	}
	res := victory.Evaluate(e.b, e.view(board.North), e.view(board.South), e.networkComputed)
	if res.State.IsTerminal() {
		e.turn.GameState = res.State
		logw.Infof(ctx, "game over: %v", res.Details)
	}
}
