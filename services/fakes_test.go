package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// memStore is an in-memory stand-in for the postgres repositories, faithful
// to their guarded-write and version-CAS semantics so the services can be
// exercised without a database.
type memStore struct {
	mu sync.Mutex

	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	brackets     map[int]*models.Bracket
	nodes        map[int]*models.BracketNode
	matches      map[int]*models.Match
	submissions  map[int]*models.ResultSubmission
	disputes     map[int]*models.Dispute
	standings    map[int]*models.TournamentStanding
	leases       map[int]leaseRow

	nextBracketID    int
	nextNodeID       int
	nextMatchID      int
	nextSubmissionID int
	nextDisputeID    int
	nextStandingID   int

	leaseBusy bool // force Acquire to fail
}

type leaseRow struct {
	holder    string
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  make(map[int]*models.Tournament),
		participants: make(map[int]*models.Participant),
		brackets:     make(map[int]*models.Bracket),
		nodes:        make(map[int]*models.BracketNode),
		matches:      make(map[int]*models.Match),
		submissions:  make(map[int]*models.ResultSubmission),
		disputes:     make(map[int]*models.Dispute),
		standings:    make(map[int]*models.TournamentStanding),
		leases:       make(map[int]leaseRow),
	}
}

// RunInTx satisfies repositories.TxRunner. The fake has no transactions;
// rollback-on-error behavior is not simulated.
func (s *memStore) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// --- LeaseRepository ---

func (s *memStore) Acquire(ctx context.Context, tournamentID int, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaseBusy {
		return false, nil
	}
	row, ok := s.leases[tournamentID]
	if ok && row.expiresAt.After(time.Now()) && row.holder != holder {
		return false, nil
	}
	s.leases[tournamentID] = leaseRow{holder: holder, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *memStore) Release(ctx context.Context, tournamentID int, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.leases[tournamentID]; ok && row.holder == holder {
		delete(s.leases, tournamentID)
	}
	return nil
}

// --- TournamentRepository ---

func (s *memStore) Upsert(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *t
	copied.ChampionID = nil
	s.tournaments[t.ID] = &copied
	return nil
}

func (s *memStore) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *memStore) SetChampion(ctx context.Context, exec repositories.SQLExecutor, id, championID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.ChampionID != nil && *t.ChampionID != championID {
		return repositories.ErrTournamentNotFound
	}
	t.ChampionID = &championID
	t.Status = models.TournamentStatusCompleted
	return nil
}

// --- ParticipantRepository ---

type memParticipantRepo struct{ s *memStore }

func (r memParticipantRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, participants []*models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			delete(r.s.participants, id)
		}
	}
	for _, p := range participants {
		copied := *p
		r.s.participants[p.ID] = &copied
	}
	return nil
}

func (r memParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r memParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- BracketRepository ---

type memBracketRepo struct{ s *memStore }

func (r memBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextBracketID++
	bracket.ID = r.s.nextBracketID
	bracket.CreatedAt = time.Now()
	copied := *bracket
	r.s.brackets[bracket.ID] = &copied
	return nil
}

func (r memBracketRepo) GetByID(ctx context.Context, id int) (*models.Bracket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.brackets[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *b
	return &copied, nil
}

func (r memBracketRepo) GetActiveByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.Bracket
	for _, b := range r.s.brackets {
		if b.TournamentID == tournamentID && !b.Invalidated {
			if latest == nil || b.ID > latest.ID {
				latest = b
			}
		}
	}
	if latest == nil {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r memBracketRepo) InvalidateByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.brackets {
		if b.TournamentID == tournamentID {
			b.Invalidated = true
		}
	}
	return nil
}

// --- NodeRepository ---

type memNodeRepo struct{ s *memStore }

func (r memNodeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, node *models.BracketNode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextNodeID++
	node.ID = r.s.nextNodeID
	copied := *node
	r.s.nodes[node.ID] = &copied
	return nil
}

func (r memNodeRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, node *models.BracketNode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.nodes[node.ID]
	if !ok {
		return repositories.ErrBracketNodeNotFound
	}
	stored.ParentNodeID = node.ParentNodeID
	stored.ParentSlot = node.ParentSlot
	stored.Child1NodeID = node.Child1NodeID
	stored.Child2NodeID = node.Child2NodeID
	stored.LoserNodeID = node.LoserNodeID
	stored.LoserSlot = node.LoserSlot
	return nil
}

func (r memNodeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BracketNode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.nodes[id]
	if !ok {
		return nil, repositories.ErrBracketNodeNotFound
	}
	copied := *n
	return &copied, nil
}

func (r memNodeRepo) GetByKind(ctx context.Context, exec repositories.SQLExecutor, bracketID int, kind models.NodeKind) (*models.BracketNode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.nodes {
		if n.BracketID == bracketID && n.Kind == kind {
			copied := *n
			return &copied, nil
		}
	}
	return nil, repositories.ErrBracketNodeNotFound
}

func (r memNodeRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.BracketNode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.BracketNode, 0)
	for _, n := range r.s.nodes {
		if n.BracketID == bracketID {
			copied := *n
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memNodeRepo) SetSlot(ctx context.Context, exec repositories.SQLExecutor, nodeID, slot, participantID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.nodes[nodeID]
	if !ok {
		return repositories.ErrBracketNodeNotFound
	}
	target := &n.Slot1ParticipantID
	if slot == 2 {
		target = &n.Slot2ParticipantID
	}
	if *target != nil && **target != participantID {
		return repositories.ErrNodeSlotConflict
	}
	value := participantID
	*target = &value
	return nil
}

func (r memNodeRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, nodeID, participantID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.nodes[nodeID]
	if !ok {
		return repositories.ErrBracketNodeNotFound
	}
	if n.WinnerParticipantID != nil && *n.WinnerParticipantID != participantID {
		return repositories.ErrNodeSlotConflict
	}
	value := participantID
	n.WinnerParticipantID = &value
	return nil
}

func (r memNodeRepo) SetMatchID(ctx context.Context, exec repositories.SQLExecutor, nodeID, matchID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.nodes[nodeID]
	if !ok {
		return repositories.ErrBracketNodeNotFound
	}
	if n.MatchID != nil && *n.MatchID != matchID {
		return repositories.ErrNodeSlotConflict
	}
	value := matchID
	n.MatchID = &value
	return nil
}

// --- MatchRepository ---

type memMatchRepo struct{ s *memStore }

func (r memMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if match.NodeID != nil {
		for _, m := range r.s.matches {
			if m.NodeID != nil && *m.NodeID == *match.NodeID {
				return repositories.ErrMatchNodeTaken
			}
		}
	}
	r.s.nextMatchID++
	match.ID = r.s.nextMatchID
	match.Version = 0
	match.CreatedAt = time.Now()
	copied := *match
	r.s.matches[match.ID] = &copied
	return nil
}

func (r memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r memMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if state != nil && m.State != *state {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memMatchRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.BracketID != nil && *m.BracketID == bracketID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memMatchRepo) UpdateState(ctx context.Context, exec repositories.SQLExecutor, id, version int, state models.MatchState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Version != version {
		return repositories.ErrMatchVersionConflict
	}
	m.State = state
	m.Version++
	return nil
}

func (r memMatchRepo) SetCheckIn(ctx context.Context, exec repositories.SQLExecutor, id, version, side int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Version != version {
		return repositories.ErrMatchVersionConflict
	}
	if side == 1 {
		m.P1CheckedIn = true
	} else {
		m.P2CheckedIn = true
	}
	m.Version++
	return nil
}

func (r memMatchRepo) RecordResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[match.ID]
	if !ok || m.Version != match.Version {
		return repositories.ErrMatchVersionConflict
	}
	m.Score1 = match.Score1
	m.Score2 = match.Score2
	m.WinnerParticipantID = match.WinnerParticipantID
	m.LoserParticipantID = match.LoserParticipantID
	m.State = match.State
	m.Forfeit = match.Forfeit
	m.ResultDeadline = nil
	m.Version++
	match.Version++
	return nil
}

func (r memMatchRepo) SetResultDeadline(ctx context.Context, exec repositories.SQLExecutor, id, version int, deadline time.Time, state models.MatchState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Version != version {
		return repositories.ErrMatchVersionConflict
	}
	m.ResultDeadline = &deadline
	m.State = state
	m.Version++
	return nil
}

func (r memMatchRepo) listWhere(filter func(*models.Match) bool) []*models.Match {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if filter(m) {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memMatchRepo) ListScheduledBefore(ctx context.Context, checkInOpensBefore time.Time) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool {
		return m.State == models.MatchStateScheduled && !m.CheckInOpensAt.After(checkInOpensBefore)
	}), nil
}

func (r memMatchRepo) ListCheckInExpired(ctx context.Context, now time.Time) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool {
		return m.State == models.MatchStateCheckIn && !m.CheckInClosesAt.After(now)
	}), nil
}

func (r memMatchRepo) ListReadyToStart(ctx context.Context, now time.Time) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool {
		return m.State == models.MatchStateReady && !m.ScheduledAt.After(now)
	}), nil
}

func (r memMatchRepo) ListResultDeadlineExpired(ctx context.Context, now time.Time) ([]*models.Match, error) {
	return r.listWhere(func(m *models.Match) bool {
		return m.State == models.MatchStatePendingResult &&
			m.ResultDeadline != nil && !m.ResultDeadline.After(now)
	}), nil
}

func (r memMatchRepo) CountUnfinishedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		switch m.State {
		case models.MatchStateCompleted, models.MatchStateCancelled, models.MatchStateForfeit:
		default:
			count++
		}
	}
	return count, nil
}

// --- SubmissionRepository ---

type memSubmissionRepo struct{ s *memStore }

func (r memSubmissionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, submission *models.ResultSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextSubmissionID++
	submission.ID = r.s.nextSubmissionID
	submission.CreatedAt = time.Now()
	copied := *submission
	r.s.submissions[submission.ID] = &copied
	return nil
}

func (r memSubmissionRepo) GetByID(ctx context.Context, id int) (*models.ResultSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r memSubmissionRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.ResultSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.ResultSubmission, 0)
	for _, sub := range r.s.submissions {
		if sub.MatchID == matchID {
			copied := *sub
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSubmissionRepo) MarkConfirmed(ctx context.Context, exec repositories.SQLExecutor, ids ...int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if sub, ok := r.s.submissions[id]; ok {
			sub.Confirmed = true
		}
	}
	return nil
}

// --- DisputeRepository ---

type memDisputeRepo struct{ s *memStore }

func (r memDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.MatchID == dispute.MatchID && !d.Status.Terminal() {
			return repositories.ErrDisputeOpenConflict
		}
	}
	r.s.nextDisputeID++
	dispute.ID = r.s.nextDisputeID
	dispute.CreatedAt = time.Now()
	copied := *dispute
	r.s.disputes[dispute.ID] = &copied
	return nil
}

func (r memDisputeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	copied := *d
	return &copied, nil
}

func (r memDisputeRepo) GetOpenByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.MatchID == matchID && !d.Status.Terminal() {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r memDisputeRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.DisputeStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return repositories.ErrDisputeNotFound
	}
	d.Status = status
	return nil
}

func (r memDisputeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[dispute.ID]
	if !ok || d.Status.Terminal() {
		return repositories.ErrDisputeNotFound
	}
	*d = *dispute
	return nil
}

func (r memDisputeRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Dispute, 0)
	for _, d := range r.s.disputes {
		m, ok := r.s.matches[d.MatchID]
		if ok && m.TournamentID == tournamentID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- StandingRepository ---

type memStandingRepo struct{ s *memStore }

func (r memStandingRepo) Create(ctx context.Context, exec repositories.SQLExecutor, standing *models.TournamentStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextStandingID++
	standing.ID = r.s.nextStandingID
	standing.UpdatedAt = time.Now()
	copied := *standing
	r.s.standings[standing.ID] = &copied
	return nil
}

func (r memStandingRepo) GetByTournamentAndParticipant(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.standings {
		if st.TournamentID == tournamentID && st.ParticipantID == participantID {
			copied := *st
			return &copied, nil
		}
	}
	return nil, repositories.ErrStandingNotFound
}

func (r memStandingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error) {
	existing, err := r.GetByTournamentAndParticipant(ctx, exec, tournamentID, participantID)
	if err == nil {
		return existing, nil
	}
	standing := &models.TournamentStanding{TournamentID: tournamentID, ParticipantID: participantID}
	if err := r.Create(ctx, exec, standing); err != nil {
		return nil, err
	}
	return standing, nil
}

func (r memStandingRepo) Update(ctx context.Context, exec repositories.SQLExecutor, standing *models.TournamentStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.standings[standing.ID]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	copied := *standing
	copied.UpdatedAt = time.Now()
	*st = copied
	return nil
}

func (r memStandingRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, ranked bool) ([]*models.TournamentStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TournamentStanding, 0)
	for _, st := range r.s.standings {
		if st.TournamentID == tournamentID {
			copied := *st
			out = append(out, &copied)
		}
	}
	if ranked {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Points != out[j].Points {
				return out[i].Points > out[j].Points
			}
			if out[i].ScoreDifference != out[j].ScoreDifference {
				return out[i].ScoreDifference > out[j].ScoreDifference
			}
			return out[i].ParticipantID < out[j].ParticipantID
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	}
	return out, nil
}

func (r memStandingRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, st := range r.s.standings {
		if st.TournamentID == tournamentID {
			delete(r.s.standings, id)
		}
	}
	return nil
}

// --- EventPublisher ---

type capturePublisher struct {
	mu     sync.Mutex
	events []models.EngineEvent
}

func (p *capturePublisher) Publish(event models.EngineEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) byType(t models.EngineEventType) []models.EngineEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EngineEvent, 0)
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
