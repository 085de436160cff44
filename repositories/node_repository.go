package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrBracketNodeNotFound = errors.New("bracket node not found")

	// ErrNodeSlotConflict means the guarded slot write matched zero rows:
	// the slot already holds a different participant.
	ErrNodeSlotConflict = errors.New("bracket node slot already holds a different participant")
)

type NodeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error)
	GetByKind(ctx context.Context, exec SQLExecutor, bracketID int, kind models.NodeKind) (*models.BracketNode, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.BracketNode, error)
	SetSlot(ctx context.Context, exec SQLExecutor, nodeID, slot, participantID int) error
	SetWinner(ctx context.Context, exec SQLExecutor, nodeID, participantID int) error
	SetMatchID(ctx context.Context, exec SQLExecutor, nodeID, matchID int) error
}

type postgresNodeRepository struct {
	db *sql.DB
}

func NewPostgresNodeRepository(db *sql.DB) NodeRepository {
	return &postgresNodeRepository{db: db}
}

func (r *postgresNodeRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresNodeRepository) Create(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error {
	query := `
		INSERT INTO bracket_nodes
			(bracket_id, bracket_type, kind, round, position,
			 slot1_participant_id, slot2_participant_id, is_bye)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.executor(exec).QueryRowContext(ctx, query,
		node.BracketID,
		node.BracketType,
		node.Kind,
		node.Round,
		node.Position,
		node.Slot1ParticipantID,
		node.Slot2ParticipantID,
		node.IsBye,
	).Scan(&node.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bracket node (bracket %d, round %d, pos %d): %w",
			node.BracketID, node.Round, node.Position, err)
	}
	return nil
}

// UpdateLinks writes the navigation fields in the second generation pass,
// once every node of the bracket has an ID.
func (r *postgresNodeRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error {
	query := `
		UPDATE bracket_nodes
		SET parent_node_id = $1, parent_slot = $2,
		    child1_node_id = $3, child2_node_id = $4,
		    loser_node_id = $5, loser_slot = $6
		WHERE id = $7`

	result, err := r.executor(exec).ExecContext(ctx, query,
		node.ParentNodeID, node.ParentSlot,
		node.Child1NodeID, node.Child2NodeID,
		node.LoserNodeID, node.LoserSlot,
		node.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update links for node %d: %w", node.ID, err)
	}
	return checkAffectedRows(result, ErrBracketNodeNotFound)
}

func (r *postgresNodeRepository) scanNode(rowScanner interface{ Scan(...interface{}) error }) (*models.BracketNode, error) {
	var n models.BracketNode
	err := rowScanner.Scan(
		&n.ID, &n.BracketID, &n.BracketType, &n.Kind, &n.Round, &n.Position,
		&n.Slot1ParticipantID, &n.Slot2ParticipantID,
		&n.ParentNodeID, &n.ParentSlot, &n.Child1NodeID, &n.Child2NodeID,
		&n.LoserNodeID, &n.LoserSlot,
		&n.IsBye, &n.WinnerParticipantID, &n.MatchID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNodeNotFound
		}
		return nil, err
	}
	return &n, nil
}

const nodeColumns = `
	id, bracket_id, bracket_type, kind, round, position,
	slot1_participant_id, slot2_participant_id,
	parent_node_id, parent_slot, child1_node_id, child2_node_id,
	loser_node_id, loser_slot,
	is_bye, winner_participant_id, match_id`

func (r *postgresNodeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error) {
	query := `SELECT` + nodeColumns + ` FROM bracket_nodes WHERE id = $1`
	return r.scanNode(r.executor(exec).QueryRowContext(ctx, query, id))
}

// GetByKind finds a bracket's unique special node (grand final, reset).
func (r *postgresNodeRepository) GetByKind(ctx context.Context, exec SQLExecutor, bracketID int, kind models.NodeKind) (*models.BracketNode, error) {
	query := `SELECT` + nodeColumns + ` FROM bracket_nodes WHERE bracket_id = $1 AND kind = $2`
	return r.scanNode(r.executor(exec).QueryRowContext(ctx, query, bracketID, kind))
}

func (r *postgresNodeRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.BracketNode, error) {
	query := `SELECT` + nodeColumns + `
		FROM bracket_nodes
		WHERE bracket_id = $1
		ORDER BY bracket_type ASC, round ASC, position ASC`

	rows, err := r.executor(exec).QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	nodes := make([]*models.BracketNode, 0)
	for rows.Next() {
		node, scanErr := r.scanNode(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan bracket node row: %w", scanErr)
		}
		nodes = append(nodes, node)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bracket node rows iteration: %w", err)
	}
	return nodes, nil
}

// SetSlot writes a participant into a slot, check-before-write: the update
// only matches when the slot is empty or already holds the same participant,
// which makes advancement retries idempotent. A different occupant surfaces
// as ErrNodeSlotConflict.
func (r *postgresNodeRepository) SetSlot(ctx context.Context, exec SQLExecutor, nodeID, slot, participantID int) error {
	var query string
	switch slot {
	case 1:
		query = `
			UPDATE bracket_nodes SET slot1_participant_id = $1
			WHERE id = $2 AND (slot1_participant_id IS NULL OR slot1_participant_id = $1)`
	case 2:
		query = `
			UPDATE bracket_nodes SET slot2_participant_id = $1
			WHERE id = $2 AND (slot2_participant_id IS NULL OR slot2_participant_id = $1)`
	default:
		return fmt.Errorf("invalid node slot %d", slot)
	}

	result, err := r.executor(exec).ExecContext(ctx, query, participantID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to set slot %d on node %d: %w", slot, nodeID, err)
	}
	return checkAffectedRows(result, ErrNodeSlotConflict)
}

// SetWinner records the node winner with the same guarded-write rule as
// SetSlot.
func (r *postgresNodeRepository) SetWinner(ctx context.Context, exec SQLExecutor, nodeID, participantID int) error {
	query := `
		UPDATE bracket_nodes SET winner_participant_id = $1
		WHERE id = $2 AND (winner_participant_id IS NULL OR winner_participant_id = $1)`

	result, err := r.executor(exec).ExecContext(ctx, query, participantID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to set winner on node %d: %w", nodeID, err)
	}
	return checkAffectedRows(result, ErrNodeSlotConflict)
}

func (r *postgresNodeRepository) SetMatchID(ctx context.Context, exec SQLExecutor, nodeID, matchID int) error {
	query := `
		UPDATE bracket_nodes SET match_id = $1
		WHERE id = $2 AND (match_id IS NULL OR match_id = $1)`

	result, err := r.executor(exec).ExecContext(ctx, query, matchID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to set match on node %d: %w", nodeID, err)
	}
	return checkAffectedRows(result, ErrNodeSlotConflict)
}
