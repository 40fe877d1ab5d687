// Package state provides a JSON file backed store for Foreman
package state

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
	"github.com/foreman-dev/foreman/pkg/utils"
)

// HeartbeatInterval is how often a running owner refreshes its lock file
const HeartbeatInterval = 10 * time.Second

// staleAfter is how old a heartbeat may get before the lock is considered abandoned
const staleAfter = 30 * time.Second

// Owner records which process is using a state directory
type Owner struct {
	ProcessID int       `json:"processId"`
	StartedAt time.Time `json:"startedAt"`
	Heartbeat time.Time `json:"heartbeat"`
}

// FileStore keeps builds, sessions, the queue and the event log as files
// under a single directory:
//
//	builds/<id>.json
//	sessions/<id>.json
//	queue.json
//	agents.json, conversations.json, teams.json, connections.json
//	events.jsonl
//	owner.json
//
// The agent, conversation, team and connection files hold JSON arrays in
// first-saved order.
type FileStore struct {
	dir    string
	logger logger.Logger

	mu sync.RWMutex

	heartbeatStop  chan struct{}
	heartbeatTimer *time.Ticker
}

// NewFileStore creates the directory layout under dir
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	for _, sub := range []string{"builds", "sessions"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &FileStore{dir: dir, logger: log.WithComponent("state")}, nil
}

// Dir returns the root directory of the store
func (fs *FileStore) Dir() string { return fs.dir }

// SaveBuild implements store.Store
func (fs *FileStore) SaveBuild(ctx context.Context, rec *types.BuildRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return writeJSON(filepath.Join(fs.dir, "builds", rec.ID+".json"), rec)
}

// LoadBuilds implements store.Store
func (fs *FileStore) LoadBuilds(ctx context.Context) ([]*types.BuildRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []*types.BuildRecord
	err := fs.each("builds", func(name string, data []byte) {
		var rec types.BuildRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			fs.logger.Warn("Skipping unreadable build file",
				logger.WithField("file", name), logger.WithError(err))
			return
		}
		out = append(out, &rec)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// SaveQueue implements store.Store
func (fs *FileStore) SaveQueue(ctx context.Context, ops []types.Opportunity) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if ops == nil {
		ops = []types.Opportunity{}
	}
	return writeJSON(filepath.Join(fs.dir, "queue.json"), ops)
}

// LoadQueue implements store.Store
func (fs *FileStore) LoadQueue(ctx context.Context) ([]types.Opportunity, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(fs.dir, "queue.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	var ops []types.Opportunity
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("failed to parse queue: %w", err)
	}
	return ops, nil
}

// SaveSession implements store.Store
func (fs *FileStore) SaveSession(ctx context.Context, s *types.Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return writeJSON(filepath.Join(fs.dir, "sessions", s.ID+".json"), s)
}

// LoadSessions implements store.Store
func (fs *FileStore) LoadSessions(ctx context.Context) ([]*types.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []*types.Session
	err := fs.each("sessions", func(name string, data []byte) {
		var s types.Session
		if err := json.Unmarshal(data, &s); err != nil {
			fs.logger.Warn("Skipping unreadable session file",
				logger.WithField("file", name), logger.WithError(err))
			return
		}
		out = append(out, &s)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// documentFiles maps a document kind to the file holding it
var documentFiles = map[string]string{
	store.KindAgent:        "agents.json",
	store.KindConversation: "conversations.json",
	store.KindTeam:         "teams.json",
	store.KindConnection:   "connections.json",
}

// SaveAgent implements store.Store
func (fs *FileStore) SaveAgent(ctx context.Context, a *types.AgentDefinition) error {
	return fs.putDocument(store.KindAgent, a.ID, a)
}

// DeleteAgent implements store.Store
func (fs *FileStore) DeleteAgent(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	docs, err := fs.readDocuments(store.KindAgent)
	if err != nil {
		return err
	}
	i := indexOfDocument(docs, id)
	if i < 0 {
		return nil
	}
	docs = append(docs[:i:i], docs[i+1:]...)
	return writeJSON(fs.documentPath(store.KindAgent), docs)
}

// LoadAgents implements store.Store
func (fs *FileStore) LoadAgents(ctx context.Context) ([]*types.AgentDefinition, error) {
	docs, err := fs.loadDocuments(store.KindAgent)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[types.AgentDefinition](store.KindAgent, docs)
}

// SaveConversation implements store.Store
func (fs *FileStore) SaveConversation(ctx context.Context, c *types.Conversation) error {
	return fs.putDocument(store.KindConversation, c.ID, c)
}

// LoadConversations implements store.Store
func (fs *FileStore) LoadConversations(ctx context.Context) ([]*types.Conversation, error) {
	docs, err := fs.loadDocuments(store.KindConversation)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[types.Conversation](store.KindConversation, docs)
}

// SaveTeam implements store.Store
func (fs *FileStore) SaveTeam(ctx context.Context, t *types.AgentTeam) error {
	return fs.putDocument(store.KindTeam, t.ID, t)
}

// LoadTeams implements store.Store
func (fs *FileStore) LoadTeams(ctx context.Context) ([]*types.AgentTeam, error) {
	docs, err := fs.loadDocuments(store.KindTeam)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[types.AgentTeam](store.KindTeam, docs)
}

// SaveConnection implements store.Store
func (fs *FileStore) SaveConnection(ctx context.Context, c *types.IntegrationConnection) error {
	return fs.putDocument(store.KindConnection, c.ID, c)
}

// LoadConnections implements store.Store
func (fs *FileStore) LoadConnections(ctx context.Context) ([]*types.IntegrationConnection, error) {
	docs, err := fs.loadDocuments(store.KindConnection)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[types.IntegrationConnection](store.KindConnection, docs)
}

func (fs *FileStore) documentPath(kind string) string {
	return filepath.Join(fs.dir, documentFiles[kind])
}

// putDocument replaces the document with the same id in place or appends it
func (fs *FileStore) putDocument(kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	docs, err := fs.readDocuments(kind)
	if err != nil {
		return err
	}
	if i := indexOfDocument(docs, id); i >= 0 {
		docs[i] = data
	} else {
		docs = append(docs, data)
	}
	return writeJSON(fs.documentPath(kind), docs)
}

func (fs *FileStore) loadDocuments(kind string) ([][]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	docs, err := fs.readDocuments(kind)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out, nil
}

// readDocuments must be called with fs.mu held
func (fs *FileStore) readDocuments(kind string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(fs.documentPath(kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", kind, err)
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s file: %w", kind, err)
	}
	return docs, nil
}

func indexOfDocument(docs []json.RawMessage, id string) int {
	for i, raw := range docs {
		var head struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &head) == nil && head.ID == id {
			return i
		}
	}
	return -1
}

// eventLine is the on-disk form of an event
type eventLine struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// AppendEvent implements store.Store
func (fs *FileStore) AppendEvent(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	line, err := json.Marshal(eventLine{ID: event.ID, Type: event.Type, Data: data, Timestamp: event.Timestamp})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(fs.dir, "events.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Events implements store.Store
func (fs *FileStore) Events(ctx context.Context, limit int) ([]types.Event, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := os.Open(filepath.Join(fs.dir, "events.jsonl"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var out []types.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line eventLine
		if err := json.Unmarshal(raw, &line); err != nil {
			// A torn final line after a crash is skipped.
			fs.logger.Debug("Skipping unreadable event line", logger.WithError(err))
			continue
		}
		out = append(out, types.Event{
			ID:        line.ID,
			Type:      line.Type,
			Data:      line.Data,
			Timestamp: line.Timestamp,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close stops the heartbeat and releases the owner file if this process holds it
func (fs *FileStore) Close() error {
	fs.StopHeartbeat()

	owner, err := fs.readOwner()
	if err != nil || owner.ProcessID != os.Getpid() {
		return nil
	}
	if err := os.Remove(fs.ownerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release state directory: %w", err)
	}
	return nil
}

// IsLocked reports whether another live process owns the directory
func (fs *FileStore) IsLocked() (bool, error) {
	owner, err := fs.readOwner()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if owner.ProcessID == os.Getpid() {
		return false, nil
	}
	if time.Since(owner.Heartbeat) > staleAfter {
		return false, nil
	}

	process, err := os.FindProcess(owner.ProcessID)
	if err != nil {
		return false, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}

// Claim marks this process as the owner of the directory. It fails when
// another live process already holds it.
func (fs *FileStore) Claim() error {
	locked, err := fs.IsLocked()
	if err != nil {
		return err
	}
	if locked {
		owner, _ := fs.readOwner()
		return fmt.Errorf("state directory %s is in use by process %d", fs.dir, owner.ProcessID)
	}

	now := time.Now()
	return writeJSON(fs.ownerPath(), Owner{ProcessID: os.Getpid(), StartedAt: now, Heartbeat: now})
}

// StartHeartbeat refreshes the owner file until ctx is done or
// StopHeartbeat is called
func (fs *FileStore) StartHeartbeat(ctx context.Context) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.heartbeatTimer != nil {
		return
	}

	stop := make(chan struct{})
	ticker := time.NewTicker(HeartbeatInterval)
	fs.heartbeatStop = stop
	fs.heartbeatTimer = ticker

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				fs.touchHeartbeat()
			}
		}
	}()
}

// StopHeartbeat stops the heartbeat goroutine
func (fs *FileStore) StopHeartbeat() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.heartbeatTimer != nil {
		fs.heartbeatTimer.Stop()
		fs.heartbeatTimer = nil
	}
	if fs.heartbeatStop != nil {
		close(fs.heartbeatStop)
		fs.heartbeatStop = nil
	}
}

func (fs *FileStore) touchHeartbeat() {
	owner, err := fs.readOwner()
	if err != nil || owner.ProcessID != os.Getpid() {
		return
	}
	owner.Heartbeat = time.Now()
	if err := writeJSON(fs.ownerPath(), owner); err != nil {
		fs.logger.Debug("Failed to update heartbeat", logger.WithError(err))
	}
}

func (fs *FileStore) ownerPath() string {
	return filepath.Join(fs.dir, "owner.json")
}

func (fs *FileStore) readOwner() (Owner, error) {
	var owner Owner
	data, err := os.ReadFile(fs.ownerPath())
	if err != nil {
		return owner, err
	}
	if err := json.Unmarshal(data, &owner); err != nil {
		return owner, fmt.Errorf("failed to parse owner file: %w", err)
	}
	return owner, nil
}

// each calls fn with the contents of every .json file in sub
func (fs *FileStore) each(sub string, fn func(name string, data []byte)) error {
	entries, err := os.ReadDir(filepath.Join(fs.dir, sub))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s directory: %w", sub, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, sub, name))
		if err != nil {
			fs.logger.Warn("Failed to read state file",
				logger.WithField("file", name), logger.WithError(err))
			continue
		}
		fn(name, data)
	}
	return nil
}

// writeJSON writes v to path atomically
func writeJSON(path string, v any) error {
	if err := utils.WriteJSONAtomic(path, v); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
