// Package audit keeps a journal of dialogue turns in the dialogue_turns
// table so past conversations can be reviewed.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Turn is one journalled dialogue turn.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Form           string    `json:"form"`
	SatelliteID    string    `json:"satellite_id,omitempty"`
	Status         string    `json:"status"`
	Requested      string    `json:"requested,omitempty"`
	Message        string    `json:"message,omitempty"`
	Error          string    `json:"error,omitempty"`
	Devices        []string  `json:"devices,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Filter controls which turns to return.
type Filter struct {
	ConversationID string // optional: one conversation
	Status         string // optional: request, confirm, resolved, failed
	Form           string // optional: adjust or locate
	Limit          int    // default 50, max 200
	Offset         int    // pagination offset
}

// ListResult contains the paginated turn results.
type ListResult struct {
	Turns  []Turn `json:"turns"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Repository defines the interface for turn journal operations.
type Repository interface {
	Create(ctx context.Context, turn *Turn) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores turns in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new turn repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a turn. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, turn *Turn) error {
	if turn.ID == "" {
		turn.ID = "turn-" + uuid.NewString()[:8]
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	var devicesJSON *string
	if len(turn.Devices) > 0 {
		b, err := json.Marshal(turn.Devices)
		if err != nil {
			return fmt.Errorf("marshalling turn devices: %w", err)
		}
		s := string(b)
		devicesJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dialogue_turns
		 (id, conversation_id, form, satellite_id, status, requested, message, error, devices, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.Form,
		nullableString(turn.SatelliteID), turn.Status,
		nullableString(turn.Requested), nullableString(turn.Message), nullableString(turn.Error),
		devicesJSON,
		turn.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting dialogue turn: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns turns matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit,gocyclo // dynamic query builder: WHERE clause assembly from filter fields
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for journal queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.ConversationID != "" {
		conditions = append(conditions, "conversation_id = ?")
		args = append(args, filter.ConversationID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Form != "" {
		conditions = append(conditions, "form = ?")
		args = append(args, filter.Form)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM dialogue_turns %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting dialogue turns: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, conversation_id, form, satellite_id, status, requested, message, error, devices, created_at
		 FROM dialogue_turns %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dialogue turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dialogue turns: %w", err)
	}

	return &ListResult{
		Turns:  turns,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanTurn(rows *sql.Rows) (Turn, error) {
	var turn Turn
	var satellite, requested, message, errText, devicesJSON sql.NullString
	var createdAt string

	if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.Form, &satellite,
		&turn.Status, &requested, &message, &errText, &devicesJSON, &createdAt); err != nil {
		return Turn{}, fmt.Errorf("scanning dialogue turn: %w", err)
	}

	turn.SatelliteID = satellite.String
	turn.Requested = requested.String
	turn.Message = message.String
	turn.Error = errText.String
	if devicesJSON.Valid && devicesJSON.String != "" {
		if err := json.Unmarshal([]byte(devicesJSON.String), &turn.Devices); err != nil {
			return Turn{}, fmt.Errorf("decoding devices of turn %s: %w", turn.ID, err)
		}
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Turn{}, fmt.Errorf("parsing dialogue turn timestamp %q: %w", createdAt, err)
	}
	turn.CreatedAt = t

	return turn, nil
}
