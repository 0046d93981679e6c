package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/utils"
)

const (
	// Greeting opens every session.
	Greeting = "Hi! I'm here to help you create a comprehensive job description. Let's start with some basic information. " +
		"What's the job title you're looking to hire for? You can also choose from our predefined company profiles below."
	// Apology is appended when a turn fails.
	Apology = "I apologize, but I'm having trouble processing your request. Please try again."
)

var (
	ErrEmptyMessage      = errors.New("message is required")
	ErrEmptyDraft        = errors.New("job description draft is empty")
	ErrBusy              = errors.New("a chat request is already in progress")
	ErrClosed            = errors.New("chat session is closed")
	ErrUnknownProfile    = errors.New("unknown company profile")
	ErrCompanyAlreadySet = errors.New("company is already set for this session")
)

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. JobDescription carries a generated draft.
type Message struct {
	ID             int       `json:"id"`
	Role           Role      `json:"type"`
	Content        string    `json:"content"`
	JobDescription string    `json:"jobDescription,omitempty"`
	Time           time.Time `json:"timestamp"`
}

// Turn is what a Replier receives for one user message. Messages includes the
// message being sent.
type Turn struct {
	Message  string    `json:"message"`
	Context  Context   `json:"context"`
	Messages []Message `json:"messages"`
}

// Reply is the service answer to a Turn.
type Reply struct {
	Response       string   `json:"response"`
	Context        *Context `json:"context"`
	JobDescription string   `json:"jobDescription,omitempty"`
}

// Replier answers chat turns.
type Replier interface {
	Chat(ctx context.Context, turn Turn) (*Reply, error)
}

// JobAnalyzer takes an accepted draft into job analysis.
type JobAnalyzer interface {
	AnalyzeJob(ctx context.Context, text string) (*requirements.JobRequirements, error)
}

// Session is one job description authoring conversation.
type Session struct {
	ID string

	replier  Replier
	profiles []Profile
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	context  Context
	messages []Message
	pending  string
	staged   string
	busy     bool
	closed   bool
}

// New starts a session at the job title step with the greeting in the
// transcript. A nil profile list selects DefaultProfiles.
func New(replier Replier, profiles []Profile, log *zap.Logger) *Session {
	if profiles == nil {
		profiles = DefaultProfiles()
	}

	id := uuid.NewString()
	s := &Session{
		ID:       id,
		replier:  replier,
		profiles: append([]Profile{}, profiles...),
		log:      logger.WithSession(log, id),
		now:      time.Now,
		context:  NewContext(),
	}
	s.messages = []Message{{ID: 1, Role: RoleAssistant, Content: Greeting, Time: s.now()}}
	return s
}

// Send runs one chat turn. On failure the apology is appended, the context is
// left as it was and the error is returned.
func (s *Session) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.pending = ""
	s.appendLocked(Message{Role: RoleUser, Content: text})
	turn := Turn{
		Message:  text,
		Context:  s.context.Clone(),
		Messages: append([]Message{}, s.messages...),
	}
	s.mu.Unlock()

	s.log.Debug("sending chat turn",
		zap.String(logger.FieldStage, string(turn.Context.Step)),
		zap.Int("transcript_length", len(turn.Messages)),
	)

	reply, err := s.replier.Chat(ctx, turn)
	if err == nil && reply == nil {
		err = errors.New("empty chat reply")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err != nil {
		s.appendLocked(Message{Role: RoleAssistant, Content: Apology})
		s.log.Warn("chat turn failed", zap.Error(err))
		return nil, err
	}

	msg := s.appendLocked(Message{
		Role:           RoleAssistant,
		Content:        strings.TrimSpace(reply.Response),
		JobDescription: strings.TrimSpace(reply.JobDescription),
	})
	if reply.Context != nil {
		s.context = s.context.Merge(*reply.Context)
	}

	s.log.Info("chat turn completed",
		zap.String(logger.FieldStage, string(s.context.Step)),
		zap.Bool("draft", msg.JobDescription != ""),
	)
	return &msg, nil
}

func (s *Session) appendLocked(m Message) Message {
	m.ID = len(s.messages) + 1
	m.Time = s.now()
	s.messages = append(s.messages, m)
	return m
}

// Profiles lists the company profiles the session can be seeded with.
func (s *Session) Profiles() []Profile {
	return append([]Profile{}, s.profiles...)
}

// SelectProfile merges a company profile into the context and returns the
// seeded input text, which also becomes the pending input. A different company
// already in the context is never overwritten.
func (s *Session) SelectProfile(name string) (string, error) {
	p, ok := findProfile(s.profiles, name)
	if !ok {
		return "", ErrUnknownProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if current := strings.TrimSpace(s.context.Company); current != "" && !strings.EqualFold(current, p.Name) {
		return "", ErrCompanyAlreadySet
	}

	if s.context.Company == "" {
		s.context.Company = p.Name
	}
	s.context.CompanyOverview = p.Overview
	s.context.Benefits = utils.AppendDistinct(s.context.Benefits, p.Benefits)

	s.pending = p.Seed()
	s.log.Info("company profile selected", zap.String("company", p.Name))
	return s.pending, nil
}

// Pending returns the input text seeded by SelectProfile, if any.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Edit applies an explicit user change to the context. It is the only way to
// overwrite fields that are already set. The step can not be made invalid.
func (s *Session) Edit(fn func(*Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	next := s.context.Clone()
	fn(&next)
	if !next.Step.Valid() {
		next.Step = s.context.Step
	}
	s.context = next
	return nil
}

// Context returns a copy of the current context.
func (s *Session) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context.Clone()
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message{}, s.messages...)
}

// Drafts returns every job description draft in transcript order.
func (s *Session) Drafts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var drafts []string
	for _, m := range s.messages {
		if m.JobDescription != "" {
			drafts = append(drafts, m.JobDescription)
		}
	}
	return drafts
}

// LatestDraft returns the most recent draft.
func (s *Session) LatestDraft() (string, bool) {
	drafts := s.Drafts()
	if len(drafts) == 0 {
		return "", false
	}
	return drafts[len(drafts)-1], true
}

// Use stages a draft for manual editing without starting job analysis.
func (s *Session) Use(draft string) error {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return ErrEmptyDraft
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = draft
	return nil
}

// Staged returns the draft staged by Use.
func (s *Session) Staged() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged
}

// Apply hands a draft to job analysis. On success the session is closed and
// no further turns are accepted.
func (s *Session) Apply(ctx context.Context, draft string, analyzer JobAnalyzer) (*requirements.JobRequirements, error) {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return nil, ErrEmptyDraft
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	reqs, err := analyzer.AnalyzeJob(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.log.Warn("applying job description draft failed", zap.Error(err))
		return nil, err
	}

	s.closed = true
	s.staged = draft
	s.log.Info("job description draft applied")
	return reqs, nil
}

// Closed reports whether a draft has been applied.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
