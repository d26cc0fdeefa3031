package dialogue

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
)

// Logger is the logging interface used by the dialogue service.
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

// Catalogs is the snapshot store the service reads. *catalog.Store
// satisfies it.
type Catalogs interface {
	Current() *catalog.Catalog
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// Observer is told about every turn outcome. The InfluxDB recorder and the
// WebSocket hub implement it.
type Observer interface {
	ObserveTurn(conv Conversation, out Outcome)
}

// ServiceOptions tunes the service.
type ServiceOptions struct {
	Machine Options
	// AutoSubmit executes a form as soon as it resolves.
	AutoSubmit bool
	// RefreshOnStart reloads the catalog when a conversation starts.
	RefreshOnStart bool
}

// Reply is the service's answer to one user turn.
type Reply struct {
	Conversation Conversation `json:"conversation"`
	Outcome      Outcome      `json:"outcome"`
	// Receipt is set when the turn submitted the form.
	Receipt *Receipt `json:"receipt,omitempty"`
}

// Message is the text to show the user.
func (r Reply) Message() string {
	if r.Receipt != nil {
		return r.Receipt.Message
	}
	return r.Outcome.Message
}

// Service runs conversations: it keeps their slots, drives the form machine
// against the current catalog and submits resolved forms.
//
// Thread Safety:
//   - Safe for concurrent use across conversations. Turns for the same
//     conversation are expected to arrive one at a time.
type Service struct {
	catalogs  Catalogs
	sessions  *Sessions
	submitter *Submitter
	machines  map[string]*Machine
	opts      ServiceOptions
	observers []Observer
	logger    Logger
}

// NewService creates a dialogue service.
func NewService(catalogs Catalogs, sessions *Sessions, submitter *Submitter, opts ServiceOptions) *Service {
	return &Service{
		catalogs:  catalogs,
		sessions:  sessions,
		submitter: submitter,
		machines: map[string]*Machine{
			FormLocate: NewMachine(LocateForm(), opts.Machine),
			FormAdjust: NewMachine(AdjustForm(), opts.Machine),
		},
		opts:   opts,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddObserver registers an observer. Call before serving turns.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Sessions returns the conversation store.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// Start opens a conversation for form. satelliteID is the device that heard
// the user and may be empty; its area, or the id itself when it names an
// area, becomes the conversation's satellite location.
func (s *Service) Start(ctx context.Context, form, satelliteID string) (Conversation, error) {
	if form == "" {
		form = FormAdjust
	}
	if _, ok := s.machines[form]; !ok {
		return Conversation{}, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}

	if s.opts.RefreshOnStart {
		if _, err := s.catalogs.Reload(ctx); err != nil {
			s.logger.Warn("catalog refresh failed, using previous snapshot", "error", err)
		}
	}

	conv := s.sessions.Create(form, satelliteID, s.satelliteArea(satelliteID))
	s.logger.Debug("conversation started", "conversation_id", conv.ID, "form", form, "satellite_area", conv.Slots.Satellite)
	return conv, nil
}

func (s *Service) satelliteArea(satelliteID string) string {
	if satelliteID == "" {
		return ""
	}
	cat := s.catalogs.Current()
	if d, ok := cat.Device(satelliteID); ok && len(d.AreaIDs) > 0 {
		return d.AreaIDs[0]
	}
	if _, ok := cat.Area(satelliteID); ok {
		return satelliteID
	}
	return ""
}

// Turn feeds one user input into a conversation.
func (s *Service) Turn(ctx context.Context, id string, in Input) (Reply, error) {
	conv, err := s.sessions.Get(id)
	if err != nil {
		return Reply{}, err
	}
	m := s.machines[conv.Form]
	out := m.Turn(s.catalogs.Current(), conv.Slots, in)
	return s.finish(ctx, conv, out)
}

// Confirm answers a StatusConfirm question.
func (s *Service) Confirm(ctx context.Context, id string, yes bool) (Reply, error) {
	conv, err := s.sessions.Get(id)
	if err != nil {
		return Reply{}, err
	}
	m := s.machines[conv.Form]
	out := m.Confirm(s.catalogs.Current(), conv.Slots, yes)
	return s.finish(ctx, conv, out)
}

// Submit executes a resolved conversation and clears its slots.
func (s *Service) Submit(ctx context.Context, id string) (Reply, error) {
	conv, err := s.sessions.Get(id)
	if err != nil {
		return Reply{}, err
	}
	if conv.Status != StatusResolved {
		return Reply{}, ErrNotResolved
	}
	out := Outcome{Status: StatusResolved, Slots: conv.Slots}
	return s.submit(ctx, conv, out)
}

// End forgets a conversation.
func (s *Service) End(id string) error {
	if !s.sessions.Delete(id) {
		return ErrConversationNotFound
	}
	return nil
}

func (s *Service) finish(ctx context.Context, conv Conversation, out Outcome) (Reply, error) {
	s.logger.Debug("turn processed",
		"conversation_id", conv.ID,
		"status", out.Status,
		"requested", out.Requested,
		"error", out.Err,
	)

	if out.Status == StatusResolved && s.opts.AutoSubmit {
		return s.submit(ctx, conv, out)
	}

	saved, err := s.sessions.Save(conv.ID, out.Slots, out.Status)
	if err != nil {
		return Reply{}, err
	}
	s.notify(saved, out)
	return Reply{Conversation: saved, Outcome: out}, nil
}

func (s *Service) submit(ctx context.Context, conv Conversation, out Outcome) (Reply, error) {
	receipt, err := s.submitter.Submit(ctx, s.catalogs.Current(), conv.Form, out.Slots)
	if err != nil {
		return Reply{}, err
	}
	s.logger.Info("form submitted", "conversation_id", conv.ID, "form", conv.Form, "message", receipt.Message)

	saved, err := s.sessions.Save(conv.ID, out.Slots.Reset(), "")
	if err != nil {
		return Reply{}, err
	}
	s.notify(saved, out)
	return Reply{Conversation: saved, Outcome: out, Receipt: &receipt}, nil
}

func (s *Service) notify(conv Conversation, out Outcome) {
	for _, o := range s.observers {
		o.ObserveTurn(conv, out)
	}
}
