package room

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/RyanMercier/gambleapp-sub000/internal/game"
	"github.com/RyanMercier/gambleapp-sub000/internal/proto"
	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

// Phase is the lobby cycle a room moves through.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

type lifecycle int

const (
	lifecycleCreated lifecycle = iota
	lifecycleActive
	lifecycleDisposing
	lifecycleDisposed
)

const (
	defaultEmptyGrace  = 5 * time.Second
	finishedResetDelay = 10 * time.Second
	lobbyDisposeDelay  = 15 * time.Second
	rosterWait         = 10 * time.Second
	heartbeatInterval  = 2 * time.Second
	disconnectAfter    = 3 * heartbeatInterval
	inboxCapacity      = 256
)

// Options configures a room at creation time.
type Options struct {
	Kind             game.Kind
	GameKind         game.Kind // lobbies only: the simulation variant they feed
	MinPlayers       int
	MaxPlayers       int
	CountdownSeconds int
	EmptyGrace       time.Duration
	Seed             int64

	// Roster carries the committed player list from a lobby handoff. A
	// simulation room created with a roster starts as soon as that many
	// players attach; without one it fills organically and runs the full
	// ready/countdown cycle.
	Roster []string
}

// Info is the room summary exposed on the diagnostics surface.
type Info struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	GameKind   string `json:"gameKind,omitempty"`
	Phase      string `json:"phase"`
	Players    int    `json:"players"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	TickRate   int    `json:"tickRate,omitempty"`
}

type command any

type joinCmd struct {
	conn     Sender
	username string
	reply    chan joinReply
}

type joinReply struct {
	sessionID string
	err       error
}

type intentCmd struct {
	sessionID string
	msg       proto.ClientMessage
}

type leaveCmd struct {
	sessionID string
}

type disposeCmd struct {
	reason string
}

type createResultCmd struct {
	roomID string
	err    error
}

// Room is one authoritative instance hosting either a matchmaking lobby or a
// live simulation. All of its state — sessions, world, timers, diff baseline —
// is owned by the single goroutine draining the inbox, so handlers never run
// concurrently and need no locks. Rooms share nothing with each other.
type Room struct {
	ID    string
	opts  Options
	rules game.Rules // nil for lobby rooms
	mgr   *Manager
	log   *logrus.Entry

	inbox chan command
	done  chan struct{}

	sched *Scheduler
	world *game.World
	sync  *state.Sync

	sessions    map[string]*Session
	nextSession int

	phase     Phase
	life      lifecycle
	countdown int
	winner    string
	pending   map[string]game.Input
	creating  bool
	lastTick  time.Time

	tickTimer      TimerHandle
	spawnTimer     TimerHandle
	countdownTimer TimerHandle
	resetTimer     TimerHandle
	graceTimer     TimerHandle
	rosterTimer    TimerHandle
	sweepTimer     TimerHandle

	info atomic.Pointer[Info]
}

func newRoom(id string, opts Options, rules game.Rules, mgr *Manager, logger *logrus.Entry) *Room {
	field := game.FieldFor(opts.Kind)
	if opts.Kind == game.KindLobby {
		field = game.FieldFor(opts.GameKind)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Room{
		ID:       id,
		opts:     opts,
		rules:    rules,
		mgr:      mgr,
		log:      logger.WithFields(logrus.Fields{"room": id, "kind": string(opts.Kind)}),
		inbox:    make(chan command, inboxCapacity),
		done:     make(chan struct{}),
		world:    game.NewWorld(field, seed),
		sync:     state.NewSync(),
		sessions: make(map[string]*Session),
		pending:  make(map[string]game.Input),
		phase:    PhaseWaiting,
	}
	r.sched = newScheduler(r.postTimer)
	r.publishInfo()
	return r
}

// post delivers a command to the room loop, reporting false once the room is
// disposed.
func (r *Room) post(cmd command) bool {
	select {
	case r.inbox <- cmd:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) postTimer(f timerFired) bool {
	return r.post(f)
}

// Join attaches a connection to the room and returns the assigned session id.
func (r *Room) Join(conn Sender, username string) (string, error) {
	reply := make(chan joinReply, 1)
	if !r.post(joinCmd{conn: conn, username: username, reply: reply}) {
		return "", ErrRoomClosed
	}
	select {
	case rep := <-reply:
		return rep.sessionID, rep.err
	case <-r.done:
		return "", ErrRoomClosed
	}
}

// Deliver hands an inbound client frame to the room loop.
func (r *Room) Deliver(sessionID string, msg proto.ClientMessage) {
	r.post(intentCmd{sessionID: sessionID, msg: msg})
}

// Leave detaches a session. Safe to call for sessions already gone.
func (r *Room) Leave(sessionID string) {
	r.post(leaveCmd{sessionID: sessionID})
}

// Dispose asks the room to shut down.
func (r *Room) Dispose(reason string) {
	r.post(disposeCmd{reason: reason})
}

// Done is closed once the room has fully disposed.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Info returns the latest published room summary.
func (r *Room) Info() Info {
	if p := r.info.Load(); p != nil {
		return *p
	}
	return Info{ID: r.ID}
}

// run is the room's single thread of control.
func (r *Room) run() {
	r.log.Info("room open")
	if len(r.opts.Roster) > 0 {
		r.rosterTimer = r.sched.After(rosterWait, r.rosterDeadline)
	}
	r.graceTimer = r.sched.After(r.opts.EmptyGrace, r.disposeIfEmpty)
	r.sweepTimer = r.sched.Every(heartbeatInterval, r.sweepStale)

	for cmd := range r.inbox {
		r.handle(cmd)
		if r.life == lifecycleDisposed {
			return
		}
	}
}

func (r *Room) handle(cmd command) {
	defer r.recoverFault()
	switch c := cmd.(type) {
	case joinCmd:
		id, err := r.attach(c.conn, c.username)
		c.reply <- joinReply{sessionID: id, err: err}
	case intentCmd:
		r.handleIntent(c.sessionID, c.msg)
	case leaveCmd:
		r.detach(c.sessionID)
	case timerFired:
		if r.sched.accept(c) {
			c.fn()
		}
	case createResultCmd:
		r.completeHandoff(c)
	case disposeCmd:
		r.disposeNow(c.reason)
	}
	if r.life != lifecycleDisposed {
		r.flush()
	}
}

// recoverFault contains a panic out of any handler to this room: the round is
// declared an abnormal finish and the room disposes, leaving every other room
// untouched.
func (r *Room) recoverFault() {
	rec := recover()
	if rec == nil {
		return
	}
	r.log.Errorf("room fault: %v\n%s", rec, debug.Stack())
	if r.life == lifecycleDisposed {
		return
	}
	r.phase = PhaseFinished
	r.winner = ""
	r.broadcastMsg(proto.NewGameEnded("", "round aborted by a server fault"))
	r.disposeNow("fault")
}

func (r *Room) attach(conn Sender, username string) (string, error) {
	if r.life >= lifecycleDisposing {
		return "", ErrRoomClosed
	}
	if len(r.sessions) >= r.opts.MaxPlayers {
		return "", ErrCapacityExceeded
	}

	r.nextSession++
	id := fmt.Sprintf("player-%d", r.nextSession)
	if strings.TrimSpace(username) == "" {
		username = id
	}
	now := time.Now()
	s := &Session{ID: id, Username: username, conn: conn, joinedAt: now, lastHeartbeat: now}
	r.sessions[id] = s
	r.world.AddPlayer(id, username)
	r.life = lifecycleActive
	r.sched.Cancel(r.graceTimer)
	r.graceTimer = 0

	r.broadcastExcept(id, proto.NewPlayerJoined(id, username))
	r.sendTo(s, proto.NewWelcome(id, r.ID, string(r.opts.Kind)))
	r.sendTo(s, r.gameInfo())
	if snapshot, err := r.sync.SnapshotJSON(); err == nil {
		r.sendTo(s, proto.NewState(snapshot, now))
	} else {
		r.log.WithError(err).Error("failed to render join snapshot")
	}
	r.log.WithFields(logrus.Fields{"session": id, "username": username}).Info("session attached")

	if len(r.opts.Roster) > 0 && r.phase == PhaseWaiting && len(r.sessions) >= len(r.opts.Roster) {
		r.sched.Cancel(r.rosterTimer)
		r.rosterTimer = 0
		r.startRound()
	} else {
		r.recheckReady()
	}
	return id, nil
}

// detach removes a session and its player entity. Idempotent: a second call
// for the same id has no effect.
func (r *Room) detach(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	r.world.RemovePlayer(id)
	delete(r.pending, id)
	s.conn.Close()

	r.broadcastMsg(proto.NewPlayerLeft(id))
	r.log.WithField("session", id).Info("session detached")

	switch r.phase {
	case PhaseCountdown:
		r.recheckReady()
	case PhasePlaying:
		// A departure can end the round on its own.
		r.checkEnd()
	}

	if len(r.sessions) == 0 && r.life == lifecycleActive {
		r.graceTimer = r.sched.After(r.opts.EmptyGrace, r.disposeIfEmpty)
	}
}

func (r *Room) disposeIfEmpty() {
	if len(r.sessions) == 0 {
		r.disposeNow("empty past grace period")
	}
}

func (r *Room) handleIntent(id string, msg proto.ClientMessage) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	s.lastHeartbeat = now

	switch msg.Type {
	case proto.TypeToggleReady:
		if r.phase != PhaseWaiting {
			r.log.WithField("session", id).Debug("ready toggle ignored outside waiting phase")
			return
		}
		if p, ok := r.world.Player(id); ok {
			p.Ready = !p.Ready
			r.recheckReady()
		}
	case proto.TypeChatMessage:
		r.handleChat(s, msg.Text, now)
	case proto.TypePlayerUpdate:
		r.buffer(id, game.Input{HasTargetX: true, TargetX: msg.X})
	case proto.TypePlayerInput:
		r.buffer(id, game.Input{HasTargetX: true, TargetX: msg.TargetX})
	case proto.TypePaddleMove:
		r.buffer(id, game.Input{HasPaddleY: true, PaddleY: msg.PaddleY})
	case proto.TypePlayerDied:
		// Client-reported elimination is trusted; the next tick applies it.
		r.buffer(id, game.Input{Died: true})
	case proto.TypeRestart:
		if r.phase != PhaseFinished {
			r.log.WithField("session", id).Debug("restart ignored outside finished phase")
			return
		}
		r.resetRound(s.Username + " started a new round")
	case proto.TypeHeartbeat:
		r.handleHeartbeat(s, msg, now)
	default:
		r.log.WithFields(logrus.Fields{"session": id, "type": msg.Type}).Debug("ignoring unknown intent")
	}
}

// buffer stores a positional intent for the next tick, newest wins.
func (r *Room) buffer(id string, in game.Input) {
	if r.phase != PhasePlaying || r.rules == nil {
		return
	}
	r.pending[id] = r.pending[id].Merge(in)
}

func (r *Room) handleChat(s *Session, text string, now time.Time) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > chatMaxLen {
		r.log.WithField("session", s.ID).Debug("dropping chat message with invalid length")
		return
	}
	if !s.allowChat(now) {
		r.sendTo(s, proto.NewChatRejected("rate limit exceeded, slow down"))
		return
	}
	r.broadcastMsg(proto.NewChatMessage(s.Username, text, now))
}

func (r *Room) handleHeartbeat(s *Session, msg proto.ClientMessage, now time.Time) {
	if msg.SentAt > 0 {
		clientTime := time.UnixMilli(msg.SentAt)
		if clientTime.Before(now.Add(5 * time.Second)) {
			rtt := now.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			s.lastRTT = rtt
		}
	}
	r.sendTo(s, proto.NewHeartbeat(now, time.UnixMilli(msg.SentAt), s.lastRTT))
}

// sweepStale detaches sessions whose connection has gone silent past the
// heartbeat deadline.
func (r *Room) sweepStale() {
	now := time.Now()
	var stale []string
	for id, s := range r.sessions {
		if now.Sub(s.lastHeartbeat) > disconnectAfter {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.log.WithField("session", id).Info("disconnecting session due to heartbeat timeout")
		r.detach(id)
	}
}

// recheckReady re-evaluates the countdown condition after any ready or
// membership change: enough players, all of them ready.
func (r *Room) recheckReady() {
	players := r.world.Players()
	eligible := len(players) >= r.opts.MinPlayers
	for _, p := range players {
		if !p.Ready {
			eligible = false
			break
		}
	}
	switch {
	case r.phase == PhaseWaiting && eligible:
		r.startCountdown()
	case r.phase == PhaseCountdown && !eligible:
		r.cancelCountdown("start cancelled: waiting for everyone to ready up")
	}
}

func (r *Room) startCountdown() {
	r.phase = PhaseCountdown
	r.countdown = r.opts.CountdownSeconds
	r.broadcastMsg(proto.NewGameCountdown(r.countdown))
	r.countdownTimer = r.sched.Every(time.Second, r.tickCountdown)
	r.log.WithField("countdown", r.countdown).Info("countdown started")
}

func (r *Room) cancelCountdown(message string) {
	r.sched.Cancel(r.countdownTimer)
	r.countdownTimer = 0
	r.phase = PhaseWaiting
	r.countdown = 0
	r.broadcastMsg(proto.NewGameCancelled(message))
	r.log.Info("countdown cancelled")
}

func (r *Room) tickCountdown() {
	r.countdown--
	r.broadcastMsg(proto.NewGameCountdown(r.countdown))
	if r.countdown > 0 {
		return
	}
	r.sched.Cancel(r.countdownTimer)
	r.countdownTimer = 0
	if r.opts.Kind == game.KindLobby {
		r.beginHandoff()
		return
	}
	r.startRound()
}

// rosterDeadline starts a roster room that never completed its expected
// attendance: with enough players it starts anyway, otherwise it falls back
// to organic fills with the usual ready cycle.
func (r *Room) rosterDeadline() {
	if r.phase != PhaseWaiting {
		return
	}
	if len(r.sessions) >= r.opts.MinPlayers {
		r.startRound()
		return
	}
	r.opts.Roster = nil
	r.log.Warn("roster incomplete past deadline, falling back to organic joins")
}

func (r *Room) startRound() {
	if r.rules == nil {
		return
	}
	r.phase = PhasePlaying
	r.winner = ""
	clear(r.pending)
	r.rules.Init(r.world)
	r.broadcastMsg(proto.NewGameStarted())
	r.lastTick = time.Now()
	rate := r.rules.TickRate()
	r.tickTimer = r.sched.Every(time.Second/time.Duration(rate), r.tick)
	if hs, ok := r.rules.(game.HazardSpawner); ok {
		r.spawnTimer = r.sched.Every(hs.SpawnInterval(), func() { hs.SpawnHazard(r.world) })
	}
	r.log.WithField("tickRate", rate).Info("round started")
}

func (r *Room) tick() {
	now := time.Now()
	dt := now.Sub(r.lastTick).Seconds()
	if dt <= 0 {
		dt = 1.0 / float64(r.rules.TickRate())
	}
	r.lastTick = now
	r.world.Tick++

	for id, in := range r.pending {
		if p, ok := r.world.Player(id); ok {
			r.rules.Apply(r.world, p, in)
		}
		delete(r.pending, id)
	}

	r.rules.Step(r.world, dt)
	r.checkEnd()
}

func (r *Room) checkEnd() {
	if r.phase != PhasePlaying || r.rules == nil {
		return
	}
	result, done := r.rules.CheckEnd(r.world)
	if !done {
		return
	}
	r.finishRound(result)
}

func (r *Room) finishRound(result game.Result) {
	r.sched.Cancel(r.tickTimer)
	r.tickTimer = 0
	r.sched.Cancel(r.spawnTimer)
	r.spawnTimer = 0
	r.phase = PhaseFinished
	r.winner = result.WinnerID
	r.world.Winner = result.WinnerID
	r.broadcastMsg(proto.NewGameEnded(result.WinnerID, result.Message))
	r.resetTimer = r.sched.After(finishedResetDelay, func() { r.resetRound("starting a new round") })
	r.log.WithFields(logrus.Fields{"winner": result.WinnerID, "message": result.Message}).Info("round finished")
}

// resetRound cycles finished back to waiting: entities reset, ready flags
// cleared, winner marker dropped.
func (r *Room) resetRound(message string) {
	if r.phase != PhaseFinished || r.rules == nil {
		return
	}
	r.sched.Cancel(r.resetTimer)
	r.resetTimer = 0
	r.rules.Reset(r.world)
	r.phase = PhaseWaiting
	r.countdown = 0
	r.winner = ""
	r.world.Winner = ""
	clear(r.pending)
	r.broadcastMsg(proto.NewGameReset(message))
	r.log.Info("room reset to waiting")
}

// beginHandoff asks the manager for a simulation room off the room goroutine
// so the lobby stays responsive while creation is pending. An in-flight
// creation always completes and redirects; ready-state changes during flight
// only affect future countdowns.
func (r *Room) beginHandoff() {
	r.phase = PhasePlaying
	r.creating = true
	players := r.world.Players()
	roster := make([]string, 0, len(players))
	for _, p := range players {
		roster = append(roster, p.Name)
	}
	kind := r.opts.GameKind
	go func() {
		roomID, err := r.mgr.CreateSimulationRoom(kind, roster)
		r.post(createResultCmd{roomID: roomID, err: err})
	}()
}

func (r *Room) completeHandoff(c createResultCmd) {
	r.creating = false
	if c.err != nil {
		r.log.WithError(c.err).Error("simulation room creation failed")
		r.phase = PhaseWaiting
		r.countdown = 0
		for _, p := range r.world.Players() {
			p.Ready = false
		}
		r.broadcastMsg(proto.NewGameCancelled(ErrCreateFailed.Error()))
		return
	}
	r.broadcastMsg(proto.NewRedirect(c.roomID))
	r.log.WithField("target", c.roomID).Info("lobby redirected to simulation room")
	r.sched.After(lobbyDisposeDelay, func() { r.disposeNow("handoff complete") })
}

// disposeNow tears the room down: every timer cancelled, every session
// closed, the manager entry removed. After this no command reaches the room.
func (r *Room) disposeNow(reason string) {
	if r.life >= lifecycleDisposing {
		return
	}
	r.life = lifecycleDisposing
	r.sched.CancelAll()
	for id, s := range r.sessions {
		delete(r.sessions, id)
		r.world.RemovePlayer(id)
		s.conn.Close()
	}
	r.life = lifecycleDisposed
	close(r.done)
	if r.mgr != nil {
		r.mgr.remove(r.ID)
	}
	r.publishInfo()
	r.log.WithField("reason", reason).Info("room disposed")
}

// flush projects the room state, commits it against the last broadcast
// snapshot, and pushes the resulting diff to every session. Runs after every
// handled command, so one mutation batch produces at most one patch message.
func (r *Room) flush() {
	patches := r.sync.Commit(r.project())
	if len(patches) > 0 {
		r.broadcastMsg(proto.NewPatch(patches, time.Now()))
	}
	r.publishInfo()
}

// project renders the authoritative state tree clients mirror.
func (r *Room) project() *state.Doc {
	root := state.NewDoc()
	root.Set("phase", string(r.phase))
	root.Set("countdown", float64(r.countdown))
	root.Set("winner", r.winner)
	root.Set("tick", float64(r.world.Tick))
	if proj, ok := r.rules.(game.Projector); ok {
		proj.Project(r.world, root)
	} else {
		r.world.ProjectLobby(root)
	}
	return root
}

func (r *Room) gameInfo() proto.GameInfo {
	info := proto.GameInfo{
		Type:        proto.TypeGameInfo,
		Kind:        string(r.opts.Kind),
		MinPlayers:  r.opts.MinPlayers,
		MaxPlayers:  r.opts.MaxPlayers,
		FieldWidth:  r.world.Field.Width,
		FieldHeight: r.world.Field.Height,
	}
	if r.rules != nil {
		info.TickRate = r.rules.TickRate()
	}
	return info
}

func (r *Room) publishInfo() {
	info := Info{
		ID:         r.ID,
		Kind:       string(r.opts.Kind),
		GameKind:   string(r.opts.GameKind),
		Phase:      string(r.phase),
		Players:    len(r.sessions),
		MinPlayers: r.opts.MinPlayers,
		MaxPlayers: r.opts.MaxPlayers,
	}
	if r.rules != nil {
		info.TickRate = r.rules.TickRate()
	}
	r.info.Store(&info)
}

func (r *Room) sendTo(s *Session, msg any) {
	data, err := proto.Encode(msg)
	if err != nil {
		r.log.WithError(err).Error("failed to encode message")
		return
	}
	if err := s.conn.Send(data); err != nil {
		r.detach(s.ID)
	}
}

func (r *Room) broadcastMsg(msg any) {
	data, err := proto.Encode(msg)
	if err != nil {
		r.log.WithError(err).Error("failed to encode broadcast")
		return
	}
	r.broadcast(data, "")
}

func (r *Room) broadcastExcept(skip string, msg any) {
	data, err := proto.Encode(msg)
	if err != nil {
		r.log.WithError(err).Error("failed to encode broadcast")
		return
	}
	r.broadcast(data, skip)
}

func (r *Room) broadcast(data []byte, skip string) {
	var failed []string
	for id, s := range r.sessions {
		if id == skip {
			continue
		}
		if err := s.conn.Send(data); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		r.detach(id)
	}
}
