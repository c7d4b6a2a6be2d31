// Package draft keeps an expiring shadow copy of an unsaved workflow so
// an interrupted session can recover it.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/pkg/models"
)

const (
	// Key is the storage key of the draft record.
	Key = "enterprise_workflow_draft"
	// DefaultTTL is how long a draft stays recoverable.
	DefaultTTL = 24 * time.Hour
	// DefaultAutoSaveDelay is the debounce window of AutoSave.
	DefaultAutoSaveDelay = 2 * time.Second
)

// Info summarizes a stored draft for a recovery prompt.
type Info struct {
	Exists         bool   `json:"exists"`
	AgeDescription string `json:"ageDescription"`
	WorkflowName   string `json:"workflowName"`
}

// Store holds at most one draft per client context.
type Store struct {
	kv       KV
	key      string
	client   string
	ttl      time.Duration
	delay    time.Duration
	clock    clock.Clock
	logger   *logging.Logger
	debounce *Debouncer
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long a saved draft stays loadable.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithAutoSaveDelay sets the AutoSave debounce window.
func WithAutoSaveDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger used for purges and failed auto-saves.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClient scopes the store to one client context on a shared KV.
// The id is also recorded as the draft's client fingerprint.
func WithClient(id string) Option {
	return func(s *Store) { s.client = id }
}

// NewStore creates a Store over kv.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		ttl:    DefaultTTL,
		delay:  DefaultAutoSaveDelay,
		clock:  clock.Real{},
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.key = ClientKey(s.client)
	s.debounce = NewDebouncer(s.clock, s.delay)
	return s
}

// ClientKey returns the storage key for a client context.
func ClientKey(client string) string {
	if client == "" {
		return Key
	}
	return Key + ":" + client
}

// Save overwrites the draft with w, forced into draft status.
func (s *Store) Save(ctx context.Context, w models.Workflow) error {
	now := s.clock.Now()
	rec := models.DraftRecord{
		ID:                uuid.New().String(),
		Workflow:          w.WithStatus(models.StatusDraft, now),
		Timestamp:         now,
		ExpiresAt:         now.Add(s.ttl),
		ClientFingerprint: s.client,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load returns the draft workflow, or nil when there is none. Expired
// and unreadable drafts are purged and reported as absent.
func (s *Store) Load(ctx context.Context) (*models.Workflow, error) {
	rec, err := s.record(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	w := rec.Workflow
	return &w, nil
}

// Exists reports whether a live draft is stored.
func (s *Store) Exists(ctx context.Context) bool {
	rec, err := s.record(ctx)
	return err == nil && rec != nil
}

// Clear removes the draft and drops any pending auto-save.
func (s *Store) Clear(ctx context.Context) error {
	s.debounce.Cancel()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// Info describes the stored draft, or returns nil when there is none.
func (s *Store) Info(ctx context.Context) *Info {
	rec, err := s.record(ctx)
	if err != nil || rec == nil {
		return nil
	}
	return &Info{
		Exists:         true,
		AgeDescription: describeAge(s.clock.Now().Sub(rec.Timestamp)),
		WorkflowName:   rec.Workflow.Name,
	}
}

// AutoSave saves w once no newer AutoSave arrives within the debounce
// window. Only the latest workflow of a burst is written.
func (s *Store) AutoSave(ctx context.Context, w models.Workflow) {
	ctx = context.WithoutCancel(ctx)
	snapshot := w.Clone()
	s.debounce.Trigger(func() {
		if err := s.Save(ctx, snapshot); err != nil {
			s.logger.Error("auto-save failed", "key", s.key, "error", err)
		}
	})
}

// FlushAutoSave writes a pending auto-save immediately.
func (s *Store) FlushAutoSave() bool {
	return s.debounce.Flush()
}

// AutoSaveState exposes the debounce state.
func (s *Store) AutoSaveState() DebounceState {
	return s.debounce.State()
}

func (s *Store) record(ctx context.Context) (*models.DraftRecord, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var rec models.DraftRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("purging corrupt draft", "key", s.key, "error", err)
		s.purge(ctx)
		return nil, nil
	}
	if rec.Expired(s.clock.Now()) {
		s.logger.Debug("purging expired draft", "key", s.key, "expires_at", rec.ExpiresAt)
		s.purge(ctx)
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) purge(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Error("failed to purge draft", "key", s.key, "error", err)
	}
}

func describeAge(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age/time.Minute), "minute")
	default:
		return plural(int(age/time.Hour), "hour")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
