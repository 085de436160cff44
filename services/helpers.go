package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// keyedMutex serializes work per integer key. The reconciliation hot path
// locks per match so two simultaneous submissions cannot both be processed
// as the first one. Entries are refcounted and dropped once the last holder
// releases, so the map stays bounded.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[int]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[int]*keyedLock)}
}

func (k *keyedMutex) Lock(key int) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedLock{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()
	entry.mu.Lock()
}

func (k *keyedMutex) Unlock(key int) {
	k.mu.Lock()
	entry := k.entries[key]
	if entry != nil {
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
	}
	k.mu.Unlock()
	if entry != nil {
		entry.mu.Unlock()
	}
}

// matchLocks is shared by the match, result, and dispute services so every
// state change to a match contends on the same per-match lock.
var matchLocks = newKeyedMutex()

// EventPublisher is the outbound event channel to notification and analytics
// collaborators. The websocket hub satisfies it in production.
type EventPublisher interface {
	Publish(event models.EngineEvent)
}

func intPtr(v int) *int {
	return &v
}

// materializeNodeMatch creates the match for a node whose pairing is
// complete and links it back. The unique index on matches.node_id makes a
// concurrent double-create harmless: the loser of the race reads back the
// winner's row.
func materializeNodeMatch(
	ctx context.Context,
	exec repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	nodeRepo repositories.NodeRepository,
	tournament *models.Tournament,
	bracketID int,
	node *models.BracketNode,
	policy EnginePolicy,
) (*models.Match, error) {
	scheduledAt := tournament.StartDate
	if time.Now().After(scheduledAt) {
		scheduledAt = time.Now().Add(policy.CheckInDuration)
	}
	match := &models.Match{
		TournamentID:    tournament.ID,
		BracketID:       intPtr(bracketID),
		NodeID:          intPtr(node.ID),
		Round:           node.Round,
		MatchNumber:     node.Position,
		Participant1ID:  node.Slot1ParticipantID,
		Participant2ID:  node.Slot2ParticipantID,
		State:           models.MatchStateScheduled,
		ScheduledAt:     scheduledAt,
		CheckInOpensAt:  scheduledAt.Add(-policy.CheckInDuration),
		CheckInClosesAt: scheduledAt,
	}
	if err := matchRepo.Create(ctx, exec, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNodeTaken) {
			return nil, nil
		}
		return nil, err
	}
	if err := nodeRepo.SetMatchID(ctx, exec, node.ID, match.ID); err != nil {
		return nil, err
	}
	node.MatchID = intPtr(match.ID)
	return match, nil
}
