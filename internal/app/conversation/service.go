package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/PabloGalante/insight-agent/internal/app/dashboard"
	"github.com/PabloGalante/insight-agent/internal/app/transition"
	"github.com/PabloGalante/insight-agent/internal/domain"
	"github.com/PabloGalante/insight-agent/internal/observability"
)

// Greeting is shown when a session starts. It is not stored, so a session's
// history only ever holds user/agent pairs.
const Greeting = "마지막 클릭(Last Click)만 보면 위험합니다. 전체 고객 여정을 분석하는 **AI 기여도 모델링(MTA)**과 **효과 검증**을 도와드릴게요. 궁금한 점을 물어봐주세요!"

type Service struct {
	classifier   domain.Classifier
	machine      transition.Machine
	sessionStore domain.SessionStore
	messageStore domain.MessageStore

	now       func() time.Time
	sleep     func(time.Duration)
	stepDelay time.Duration

	locks *sessionLocks
}

type Option func(*Service)

// WithStepDelay sets the pause Submit takes before every transition step.
func WithStepDelay(d time.Duration) Option {
	return func(s *Service) { s.stepDelay = d }
}

// WithClock overrides time.Now and time.Sleep, mostly for tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewService(
	classifier domain.Classifier,
	machine transition.Machine,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	opts ...Option,
) *Service {
	s := &Service{
		classifier:   classifier,
		machine:      machine,
		sessionStore: sessionStore,
		messageStore: messageStore,
		now:          time.Now,
		sleep:        time.Sleep,
		locks:        newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

type StartSessionOutput struct {
	Session  *domain.Session
	Greeting string
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	session := &domain.Session{
		ID:        domain.SessionID(id),
		UserID:    in.UserID,
		Title:     in.Title,
		CreatedAt: now,
		UpdatedAt: now,
		View:      domain.ViewState{Mode: domain.ModeDefault},
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{
		Session:  session,
		Greeting: Greeting,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message
	Decision     domain.Decision

	// Session is the state after the message was handled. With SendMessage a
	// transition may still be pending; with Submit it has committed.
	Session *domain.Session
}

// SendMessage classifies the text, appends the user message and the canned
// reply, and applies the decision: home switches immediately, causal and
// attribution start a pending transition, anything else leaves the view alone.
// Pending transitions are driven by AdvanceTransition. A transition still
// pending from an earlier message is completed first.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	return s.sendMessage(ctx, in)
}

// Submit is SendMessage followed by running any started transition to
// completion, pausing the configured step delay before each step. It returns
// only once the view has settled.
func (s *Service) Submit(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	out, err := s.sendMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	if out.Session.View.Idle() {
		return out, nil
	}

	log := observability.LoggerFromContext(ctx).With("session_id", in.SessionID)
	started := s.now()

	wait := func() {
		if s.stepDelay > 0 {
			s.sleep(s.stepDelay)
		}
	}
	if err := s.run(ctx, out.Session, wait); err != nil {
		return nil, err
	}

	log.Info("transition settled",
		"mode", out.Session.View.Mode,
		"elapsed_ms", s.now().Sub(started).Milliseconds())
	return out, nil
}

func (s *Service) sendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if err := s.settle(ctx, session); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
		"mode", session.View.Mode,
	)

	decision := s.classifier.Classify(in.Text, session.View.Mode)
	log.Info("message classified", "intent", decision.Intent, "next", decision.Next)

	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleUser,
		Text:      in.Text,
		CreatedAt: s.now(),
		Mode:      session.View.Mode,
	}
	if err := s.messageStore.AppendMessage(ctx, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, fmt.Errorf("append user message: %w", err)
	}

	// Once the user message is recorded the reply and view change must land
	// too, even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	view, err := s.apply(session.View, decision)
	if err != nil {
		log.Error("failed to apply decision", "error", err)
		return nil, err
	}

	agentMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleAgent,
		Text:      decision.Reply,
		CreatedAt: s.now(),
		Mode:      view.Mode,
	}
	if err := s.messageStore.AppendMessage(ctx, agentMsg); err != nil {
		log.Error("failed to append agent message", "error", err)
		return nil, fmt.Errorf("append agent message: %w", err)
	}

	session.View = view
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, fmt.Errorf("update session: %w", err)
	}

	log.Info("send message completed", "pending", !view.Idle())

	return &SendMessageOutput{
		UserMessage:  userMsg,
		AgentMessage: agentMsg,
		Decision:     decision,
		Session:      session,
	}, nil
}

func (s *Service) apply(view domain.ViewState, d domain.Decision) (domain.ViewState, error) {
	switch {
	case !d.ChangesMode():
		return view, nil
	case !d.UsesTransition:
		next := view.Clone()
		next.Mode = d.Next
		return next, nil
	default:
		return s.machine.Begin(view, d.Next, d.LoadingLabel)
	}
}

type AdvanceOutput struct {
	Session   *domain.Session
	Committed bool
}

// AdvanceTransition moves the session's pending transition one step forward.
// On an idle session it is a no-op.
func (s *Service) AdvanceTransition(ctx context.Context, sessionID domain.SessionID) (*AdvanceOutput, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("advance transition: %w", err)
	}
	return s.advance(ctx, session)
}

func (s *Service) advance(ctx context.Context, session *domain.Session) (*AdvanceOutput, error) {
	if session.View.Idle() {
		return &AdvanceOutput{Session: session}, nil
	}

	view, committed := s.machine.Advance(session.View)
	if err := s.persistStep(ctx, session, view, committed); err != nil {
		return nil, err
	}
	return &AdvanceOutput{Session: session, Committed: committed}, nil
}

// run drives the session's pending transition to its target, saving every
// step. wait is called before each step.
func (s *Service) run(ctx context.Context, session *domain.Session, wait func()) error {
	_, err := s.machine.Run(session.View, wait, func(view domain.ViewState, committed bool) error {
		return s.persistStep(ctx, session, view, committed)
	})
	return err
}

// settle finishes a transition an earlier request left behind, so a session
// never stays stuck in loading.
func (s *Service) settle(ctx context.Context, session *domain.Session) error {
	if session.View.Idle() {
		return nil
	}
	observability.LoggerFromContext(ctx).Warn("settling leftover transition",
		"session_id", session.ID,
		"target", session.View.Pending.Target,
		"progress", session.View.Pending.Progress)
	return s.run(ctx, session, nil)
}

// persistStep stores one transition step. Steps are written without the
// caller's cancellation: a begun transition always runs to completion.
func (s *Service) persistStep(ctx context.Context, session *domain.Session, view domain.ViewState, committed bool) error {
	session.View = view
	session.UpdatedAt = s.now()

	if err := s.sessionStore.UpdateSession(context.WithoutCancel(ctx), session); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to persist transition step",
			"session_id", session.ID, "error", err)
		return fmt.Errorf("update session: %w", err)
	}

	if committed {
		observability.LoggerFromContext(ctx).Info("transition committed",
			"session_id", session.ID, "mode", view.Mode)
	}
	return nil
}

// ReturnToMain switches the view back to the default dashboard without
// touching the conversation. A pending transition is completed first.
func (s *Service) ReturnToMain(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("return to main: %w", err)
	}

	if err := s.settle(ctx, session); err != nil {
		return nil, fmt.Errorf("return to main: %w", err)
	}

	log := observability.LoggerFromContext(ctx).With("session_id", sessionID, "mode", session.View.Mode)
	if session.View.Mode == domain.ModeDefault {
		return session, nil
	}

	session.View.Mode = domain.ModeDefault
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, fmt.Errorf("update session: %w", err)
	}

	log.Info("returned to main dashboard")
	return session, nil
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"limit", limit,
	)

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return nil, nil, fmt.Errorf("get timeline: %w", err)
	}

	msgs, err := s.messageStore.GetMessagesBySession(ctx, sessionID, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, fmt.Errorf("get timeline: %w", err)
	}

	log.Info("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

type DashboardOutput struct {
	Session *domain.Session
	Panel   dashboard.Panel
}

// GetDashboard returns the panel for the session's live mode. While a
// transition is pending the previous panel stays on screen.
func (s *Service) GetDashboard(ctx context.Context, sessionID domain.SessionID) (*DashboardOutput, error) {
	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}

	return &DashboardOutput{
		Session: session,
		Panel:   dashboard.PanelFor(session.View.Mode),
	}, nil
}

func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	sessions, err := s.sessionStore.ListSessionsByUser(ctx, userID, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to list sessions", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
