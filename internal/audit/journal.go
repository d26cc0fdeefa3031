package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
)

// journalBuffer is how many turns may wait for the writer before new ones
// are dropped.
const journalBuffer = 256

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the journal.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Journal records every dialogue turn in a Repository.
//
// ObserveTurn never blocks the dialogue: turns are queued and written
// serially by Run. When the queue is full the turn is dropped with a warning.
type Journal struct {
	repo   Repository
	ch     chan *Turn
	logger Logger
}

var _ dialogue.Observer = (*Journal)(nil)

// NewJournal creates a journal writing to repo.
func NewJournal(repo Repository) *Journal {
	return &Journal{
		repo:   repo,
		ch:     make(chan *Turn, journalBuffer),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the journal.
func (j *Journal) SetLogger(logger Logger) {
	j.logger = logger
}

// ObserveTurn queues one turn for writing.
func (j *Journal) ObserveTurn(conv dialogue.Conversation, out dialogue.Outcome) {
	turn := &Turn{
		ConversationID: conv.ID,
		Form:           conv.Form,
		SatelliteID:    conv.SatelliteID,
		Status:         string(out.Status),
		Requested:      out.Requested,
		Message:        out.Message,
		CreatedAt:      time.Now().UTC(),
	}
	if out.Err != nil {
		turn.Error = out.Err.Error()
	}
	if out.Match != nil {
		turn.Devices = out.Match.Devices.Sorted()
	}

	select {
	case j.ch <- turn:
	default:
		j.logger.Warn("turn journal full, dropping entry",
			"conversation", conv.ID,
			"status", turn.Status,
		)
	}
}

// Run writes queued turns until ctx is cancelled, then drains what is left.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case turn := <-j.ch:
			j.write(turn)
		case <-ctx.Done():
			for {
				select {
				case turn := <-j.ch:
					j.write(turn)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(turn *Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.repo.Create(ctx, turn); err != nil {
		j.logger.Error("turn journal write failed",
			"conversation", turn.ConversationID,
			"error", err,
		)
	}
}
