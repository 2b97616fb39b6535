package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Store handles persistence of sessions on top of a DocStore.
type Store struct {
	docs DocStore
	now  func() time.Time
}

// NewStore creates a session store backed by docs.
func NewStore(docs DocStore) *Store {
	return &Store{
		docs: docs,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a fresh session for a project and persists it immediately.
func (s *Store) Create(projectPath, projectName string) (*Session, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	if projectName == "" {
		projectName = filepath.Base(absPath)
	}

	now := s.now()
	sess := &Session{
		ID:          uuid.NewString(),
		ProjectName: projectName,
		ProjectPath: absPath,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    []Message{},
	}
	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Store) Get(id string) (*Session, error) {
	data, err := s.docs.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return decode(data)
}

// Save refreshes UpdatedAt and replaces the stored document.
func (s *Store) Save(sess *Session) error {
	now := s.now()
	if now.Before(sess.UpdatedAt) {
		now = sess.UpdatedAt
	}
	sess.UpdatedAt = now
	return s.write(sess)
}

// AppendMessage adds msg to the end of the session log and saves it.
// It never creates a session implicitly.
func (s *Store) AppendMessage(id string, msg Message) (*Session, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.Messages = append(sess.Messages, msg)

	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListAll returns every persisted session, most recently active first.
// A document that cannot be decoded fails the whole listing.
func (s *Store) ListAll() ([]*Session, error) {
	docs, err := s.docs.List()
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(docs))
	for _, data := range docs {
		sess, err := decode(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Close releases the underlying document store.
func (s *Store) Close() error {
	return s.docs.Close()
}

func (s *Store) write(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.docs.Put(sess.ID, data)
}

func decode(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("corrupt session document: missing id")
	}
	for i, m := range sess.Messages {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("corrupt session %s: message %d: %w", sess.ID, i, err)
		}
	}
	if sess.Messages == nil {
		sess.Messages = []Message{}
	}
	return &sess, nil
}
