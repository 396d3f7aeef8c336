package store

import (
	"fmt"
	"sync"

	"recordstore/internal/record/model"
	"recordstore/pkg/logger"
)

// EventSink receives a notification after every successful mutation.
// Emit is called while the store holds its write lock, after the change is journaled and applied,
// so sinks must not block or call back into the store.
type EventSink interface {
	Emit(event model.Event)
}

// MultiSink fans an event out to each sink in order. Nil entries are skipped.
type MultiSink []EventSink

func (m MultiSink) Emit(event model.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(event)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(model.Event) {}

// Journal durably records the events of a mutation before the store applies it.
// Record must persist all events or none; an error aborts the mutation.
type Journal interface {
	Record(events []model.Event) error
}

type nopJournal struct{}

func (nopJournal) Record([]model.Event) error { return nil }

type Option func(*RecordStore)

// WithJournal makes every mutation wait for j to record its events.
func WithJournal(j Journal) Option {
	return func(s *RecordStore) {
		if j != nil {
			s.journal = j
		}
	}
}

type userRow struct {
	name      string
	email     string
	documents []model.DocumentRecord
}

// RecordStore holds users, their documents, per-document audit logs and share grants.
// All calls are serialized; writers take the exclusive lock, readers a shared one.
type RecordStore struct {
	mu      sync.RWMutex
	admin   model.Principal
	sink    EventSink
	journal Journal
	users   map[string]*userRow
	hashes  map[string]bool
	audit   map[string][]model.AuditEntry
	grants  map[string]map[string]bool // documentID -> grantee -> granted
}

// New creates an empty store. admin is fixed for the store's lifetime.
// A nil sink discards notifications. Without WithJournal nothing is persisted.
func New(admin model.Principal, sink EventSink, opts ...Option) *RecordStore {
	if sink == nil {
		sink = nopSink{}
	}
	s := &RecordStore{
		admin:   admin,
		sink:    sink,
		journal: nopJournal{},
		users:   make(map[string]*userRow),
		hashes:  make(map[string]bool),
		audit:   make(map[string][]model.AuditEntry),
		grants:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admin returns the principal allowed to mutate the store.
func (s *RecordStore) Admin() model.Principal {
	return s.admin
}

func (s *RecordStore) CreateUser(caller model.Principal, userID, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return reject("createUser", err)
	}
	if err := s.checkNewUser(userID); err != nil {
		return reject("createUser", err)
	}

	ev := model.Event{Type: model.UserCreated, UserID: userID, Name: name, Email: email}
	if err := s.record("createUser", ev); err != nil {
		return err
	}

	s.users[userID] = &userRow{name: name, email: email}
	s.emit(ev)
	return nil
}

func (s *RecordStore) CreateDocument(caller model.Principal, userID, contentHash, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return reject("createDocument", err)
	}
	if err := s.checkNewDocument(userID, contentHash); err != nil {
		return reject("createDocument", err)
	}

	ev := model.Event{Type: model.DocumentCreated, UserID: userID, DocumentID: documentID, ContentHash: contentHash}
	if err := s.record("createDocument", ev); err != nil {
		return err
	}

	s.appendDocument(userID, contentHash, documentID)
	s.emit(ev)
	return nil
}

// DocumentsByUser returns the user's documents in creation order.
func (s *RecordStore) DocumentsByUser(userID string) ([]model.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.user(userID)
	if !ok {
		return nil, model.NotFound(model.MsgUserNotFound)
	}
	return copyDocuments(u.documents), nil
}

func (s *RecordStore) UserDetails(userID string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.user(userID)
	if !ok {
		return model.User{}, model.NotFound(model.MsgUserNotFound)
	}
	return model.User{
		UserID:    userID,
		Name:      u.name,
		Email:     u.email,
		Documents: copyDocuments(u.documents),
	}, nil
}

// AddAuditEntries appends one entry per index to the log of documentIDs[i].
// The whole batch is validated before anything is appended.
func (s *RecordStore) AddAuditEntries(caller model.Principal, documentIDs, userIDs, actions []string, timestamps []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return reject("addAuditEntries", err)
	}
	n := len(documentIDs)
	if len(userIDs) != n || len(actions) != n || len(timestamps) != n {
		return reject("addAuditEntries", model.LengthMismatch())
	}
	for i := 0; i < n; i++ {
		if err := checkAuditEntry(documentIDs[i], userIDs[i], actions[i]); err != nil {
			logger.Sugar.Debugw("audit batch rejected", "index", i)
			return reject("addAuditEntries", err)
		}
	}

	if n == 0 {
		return nil
	}

	events := make([]model.Event, n)
	for i := 0; i < n; i++ {
		events[i] = model.Event{
			Type:        model.AuditEntryAdded,
			DocumentID:  documentIDs[i],
			Action:      actions[i],
			PerformedBy: userIDs[i],
			Timestamp:   timestamps[i],
		}
	}
	if err := s.record("addAuditEntries", events...); err != nil {
		return err
	}

	for _, ev := range events {
		s.audit[ev.DocumentID] = append(s.audit[ev.DocumentID], model.AuditEntry{
			Timestamp:   ev.Timestamp,
			Action:      ev.Action,
			PerformedBy: ev.PerformedBy,
		})
	}
	for _, ev := range events {
		s.emit(ev)
	}
	return nil
}

// AuditHistory returns the entries recorded for documentID, oldest first.
// Unknown ids yield an empty list.
func (s *RecordStore) AuditHistory(documentID string) []model.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.AuditEntry, len(s.audit[documentID]))
	copy(entries, s.audit[documentID])
	return entries
}

func (s *RecordStore) ShareDocument(caller model.Principal, userID, sharedWithUserID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return reject("shareDocument", err)
	}
	if err := s.checkShare(userID, sharedWithUserID, documentID); err != nil {
		return reject("shareDocument", err)
	}

	ev := model.Event{Type: model.DocumentShared, DocumentID: documentID, UserID: userID, SharedWithUserID: sharedWithUserID}
	if err := s.record("shareDocument", ev); err != nil {
		return err
	}

	s.grant(documentID, sharedWithUserID)
	s.emit(ev)
	return nil
}

// SharedDocument returns the owner's record for documentID once the grantee's access is confirmed.
func (s *RecordStore) SharedDocument(caller model.Principal, userID, sharedWithUserID, documentID string) (model.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.authorize(caller); err != nil {
		return model.DocumentRecord{}, reject("getShareDocument", err)
	}
	if err := s.checkShare(userID, sharedWithUserID, documentID); err != nil {
		return model.DocumentRecord{}, err
	}
	if !s.grants[documentID][sharedWithUserID] {
		return model.DocumentRecord{}, model.AccessDenied()
	}

	for _, doc := range s.users[userID].documents {
		if doc.DocumentID == documentID {
			return doc, nil
		}
	}
	// unreachable while checkShare scans the same list
	return model.DocumentRecord{}, model.NotFound(model.MsgDocumentNotFound)
}

// HasAccess reports whether sharedUserID was granted documentID. Open to any caller.
func (s *RecordStore) HasAccess(sharedUserID, documentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.grants[documentID][sharedUserID]
}

func (s *RecordStore) authorize(caller model.Principal) error {
	if caller != s.admin {
		return model.Unauthorized()
	}
	return nil
}

// user treats a row with an empty name as absent.
func (s *RecordStore) user(userID string) (*userRow, bool) {
	u, ok := s.users[userID]
	if !ok || u.name == "" {
		return nil, false
	}
	return u, true
}

func (s *RecordStore) checkNewUser(userID string) error {
	if _, ok := s.user(userID); ok {
		return model.AlreadyExists(model.MsgUserExists)
	}
	return nil
}

// checkNewDocument tests the hash before the owner, so a reused hash wins over a missing user.
func (s *RecordStore) checkNewDocument(userID, contentHash string) error {
	if s.hashes[contentHash] {
		return model.DuplicateHash()
	}
	if _, ok := s.user(userID); !ok {
		return model.NotFound(model.MsgUserNotFound)
	}
	return nil
}

func (s *RecordStore) checkShare(userID, sharedWithUserID, documentID string) error {
	owner, ok := s.user(userID)
	if !ok {
		return model.NotFound(model.MsgUserNotFound)
	}
	if _, ok := s.user(sharedWithUserID); !ok {
		return model.NotFound(model.MsgSharedUserNotFound)
	}
	if !ownsDocument(owner, documentID) {
		return model.NotFound(model.MsgDocumentNotFound)
	}
	return nil
}

func checkAuditEntry(documentID, performedBy, action string) error {
	switch {
	case documentID == "":
		return model.InvalidField(model.MsgEmptyDocumentID)
	case action == "":
		return model.InvalidField(model.MsgEmptyAction)
	case performedBy == "":
		return model.InvalidField(model.MsgEmptyPerformer)
	}
	return nil
}

func (s *RecordStore) appendDocument(userID, contentHash, documentID string) {
	u := s.users[userID]
	u.documents = append(u.documents, model.DocumentRecord{DocumentID: documentID, ContentHash: contentHash})
	s.hashes[contentHash] = true
}

func (s *RecordStore) grant(documentID, granteeID string) {
	if s.grants[documentID] == nil {
		s.grants[documentID] = make(map[string]bool)
	}
	s.grants[documentID][granteeID] = true
}

// record journals events ahead of the mutation; on failure the caller must leave state untouched.
func (s *RecordStore) record(op string, events ...model.Event) error {
	if err := s.journal.Record(events); err != nil {
		logger.Sugar.Errorw("journal write failed", "op", op, "events", len(events), "error", err)
		return fmt.Errorf("%s: journal: %w", op, err)
	}
	return nil
}

func (s *RecordStore) emit(event model.Event) {
	logger.Sugar.Debugw("record event", "type", event.Type, "user_id", event.UserID, "document_id", event.DocumentID)
	s.sink.Emit(event)
}

func ownsDocument(u *userRow, documentID string) bool {
	for _, doc := range u.documents {
		if doc.DocumentID == documentID {
			return true
		}
	}
	return false
}

func copyDocuments(docs []model.DocumentRecord) []model.DocumentRecord {
	out := make([]model.DocumentRecord, len(docs))
	copy(out, docs)
	return out
}

func reject(op string, err error) error {
	logger.Sugar.Warnw("operation rejected", "op", op, "kind", model.KindOf(err), "reason", err.Error())
	return err
}

// Replay rebuilds state from previously journaled events without notifying the sink
// or writing to the journal.
// Each event is checked against the same invariants as the live operation; the first
// violation stops the replay and is returned with its position.
func (s *RecordStore) Replay(events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ev := range events {
		if err := s.replayEvent(ev); err != nil {
			return fmt.Errorf("replay event %d (%s): %w", i, ev.Type, err)
		}
	}
	logger.Sugar.Infof("Replayed %d record events", len(events))
	return nil
}

func (s *RecordStore) replayEvent(ev model.Event) error {
	switch ev.Type {
	case model.UserCreated:
		if err := s.checkNewUser(ev.UserID); err != nil {
			return err
		}
		s.users[ev.UserID] = &userRow{name: ev.Name, email: ev.Email}
	case model.DocumentCreated:
		if err := s.checkNewDocument(ev.UserID, ev.ContentHash); err != nil {
			return err
		}
		s.appendDocument(ev.UserID, ev.ContentHash, ev.DocumentID)
	case model.AuditEntryAdded:
		if err := checkAuditEntry(ev.DocumentID, ev.PerformedBy, ev.Action); err != nil {
			return err
		}
		s.audit[ev.DocumentID] = append(s.audit[ev.DocumentID], model.AuditEntry{
			Timestamp:   ev.Timestamp,
			Action:      ev.Action,
			PerformedBy: ev.PerformedBy,
		})
	case model.DocumentShared:
		if err := s.checkShare(ev.UserID, ev.SharedWithUserID, ev.DocumentID); err != nil {
			return err
		}
		s.grant(ev.DocumentID, ev.SharedWithUserID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
