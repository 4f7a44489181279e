package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

var (
	_ domain.SessionStore = (*Store)(nil)
	_ domain.MessageStore = (*Store)(nil)
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (INSIGHT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(string(msgID))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID          string    `firestore:"user_id"`
	Title           string    `firestore:"title"`
	Mode            string    `firestore:"mode"`
	PendingTarget   *string   `firestore:"pending_target"`
	PendingLabel    string    `firestore:"pending_label"`
	PendingProgress int       `firestore:"pending_progress"`
	MessageCount    int64     `firestore:"message_count"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	Seq       int64     `firestore:"seq"`
	SessionID string    `firestore:"session_id"`
	Author    string    `firestore:"author"`
	Text      string    `firestore:"text"`
	Mode      string    `firestore:"mode"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toSessionDoc(session *domain.Session) sessionDoc {
	doc := sessionDoc{
		UserID:    string(session.UserID),
		Title:     session.Title,
		Mode:      string(session.View.Mode),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if p := session.View.Pending; p != nil {
		target := string(p.Target)
		doc.PendingTarget = &target
		doc.PendingLabel = p.Label
		doc.PendingProgress = p.Progress
	}
	return doc
}

func fromSessionDoc(id domain.SessionID, doc sessionDoc) *domain.Session {
	sess := &domain.Session{
		ID:        id,
		UserID:    domain.UserID(doc.UserID),
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		View:      domain.ViewState{Mode: domain.ViewMode(doc.Mode)},
	}
	if doc.PendingTarget != nil {
		sess.View.Pending = &domain.PendingTransition{
			Target:   domain.ViewMode(*doc.PendingTarget),
			Label:    doc.PendingLabel,
			Progress: doc.PendingProgress,
		}
	}
	return sess
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.sessionDoc(session.ID).Create(ctx, toSessionDoc(session))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

// UpdateSession rewrites everything but message_count, which only
// AppendMessage touches.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	doc := toSessionDoc(session)

	_, err := s.sessionDoc(session.ID).Update(ctx, []firestore.Update{
		{Path: "user_id", Value: doc.UserID},
		{Path: "title", Value: doc.Title},
		{Path: "mode", Value: doc.Mode},
		{Path: "pending_target", Value: doc.PendingTarget},
		{Path: "pending_label", Value: doc.PendingLabel},
		{Path: "pending_progress", Value: doc.PendingProgress},
		{Path: "created_at", Value: doc.CreatedAt},
		{Path: "updated_at", Value: doc.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return fromSessionDoc(id, doc), nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, fromSessionDoc(domain.SessionID(snap.Ref.ID), doc))
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

// AppendMessage stores msg with the next per-session sequence number so reads
// follow insertion order even when timestamps collide.
func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	sessionRef := s.sessionDoc(msg.SessionID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var count int64
		snap, err := tx.Get(sessionRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if v, err := snap.DataAt("message_count"); err == nil {
				count, _ = v.(int64)
			}
		}
		count++

		doc := messageDoc{
			Seq:       count,
			SessionID: string(msg.SessionID),
			Author:    string(msg.Author),
			Text:      msg.Text,
			Mode:      string(msg.Mode),
			CreatedAt: msg.CreatedAt,
		}
		if err := tx.Set(s.messageDoc(msg.SessionID, msg.ID), doc); err != nil {
			return err
		}
		return tx.Set(sessionRef, map[string]any{"message_count": count}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) GetMessagesBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	q := s.messagesCol(sessionID).OrderBy("seq", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:        domain.MessageID(snap.Ref.ID),
			SessionID: sessionID,
			Author:    domain.Role(doc.Author),
			Text:      doc.Text,
			Mode:      domain.ViewMode(doc.Mode),
			CreatedAt: doc.CreatedAt,
		})
	}

	// newest first from the query; callers want display order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
