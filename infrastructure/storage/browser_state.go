package storage

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// sessionFile is the on-disk session document
type sessionFile struct {
	SessionStorage string                `json:"session_storage"` // JSON encoded string map
	StorageState   entities.StorageState `json:"storage_state"`
}

// SessionStore keeps the browser session in a single JSON file
type SessionStore struct {
	path     string
	hostname string
	logger   *logrus.Logger
}

var _ interfaces.SessionStore = (*SessionStore)(nil)

// NewSessionStore - creates a store writing to path. Session storage is only
// replayed on pages served from hostname.
func NewSessionStore(path, hostname string, logger *logrus.Logger) *SessionStore {
	return &SessionStore{
		path:     path,
		hostname: hostname,
		logger:   logger,
	}
}

// Save - captures the live session and overwrites the file. Failures are logged.
func (s *SessionStore) Save(ctx context.Context, view interfaces.SessionView) {
	snapshot, err := Capture(ctx, view)
	if err != nil {
		s.logger.WithError(err).Error("failed to capture session")
		return
	}
	if err := s.Store(snapshot); err != nil {
		s.logger.WithError(err).Error("failed to save session")
		return
	}
	s.logger.WithField("path", s.path).Info("session saved")
}

// Restore - applies the saved session to view. Missing file is a no-op, failures are logged.
func (s *SessionStore) Restore(ctx context.Context, view interfaces.SessionView) {
	snapshot, err := s.Load()
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no saved session found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to load session, continuing without it")
		return
	}

	if snapshot.IsEmpty() {
		s.logger.Info("saved session is empty, nothing to restore")
		return
	}

	s.logger.Info("loading session")
	if err := Apply(ctx, view, snapshot, s.hostname); err != nil {
		s.logger.WithError(err).Warn("failed to restore session, continuing without it")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"cookies":         len(snapshot.State.Cookies),
		"session_storage": len(snapshot.SessionStorage),
	}).Info("session loaded")
}

// Store - writes snapshot to the session file in one piece
func (s *SessionStore) Store(snapshot entities.SessionSnapshot) error {
	storage := snapshot.SessionStorage
	if storage == nil {
		storage = map[string]string{}
	}
	encoded, err := json.Marshal(storage)
	if err != nil {
		return fmt.Errorf("%w: encode session storage: %v", entities.ErrSessionIO, err)
	}

	data, err := json.MarshalIndent(sessionFile{
		SessionStorage: string(encoded),
		StorageState:   snapshot.State,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", entities.ErrSessionIO, err)
	}

	if err := writeFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	return nil
}

// Load - reads the session file. A missing file is reported as os.ErrNotExist.
func (s *SessionStore) Load() (entities.SessionSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entities.SessionSnapshot{}, os.ErrNotExist
		}
		return entities.SessionSnapshot{}, fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return entities.SessionSnapshot{}, fmt.Errorf("%w: decode %s: %v", entities.ErrSessionIO, s.path, err)
	}

	snapshot := entities.SessionSnapshot{
		SessionStorage: map[string]string{},
		State:          file.StorageState,
	}
	if file.SessionStorage != "" {
		if err := json.Unmarshal([]byte(file.SessionStorage), &snapshot.SessionStorage); err != nil {
			return entities.SessionSnapshot{}, fmt.Errorf("%w: decode session storage: %v", entities.ErrSessionIO, err)
		}
	}
	return snapshot, nil
}

// Capture - reads the cookie jar and session storage from the live view
func Capture(ctx context.Context, view interfaces.SessionView) (entities.SessionSnapshot, error) {
	state, err := view.StorageState(ctx)
	if err != nil {
		return entities.SessionSnapshot{}, fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	storage, err := view.SessionStorage(ctx)
	if err != nil {
		return entities.SessionSnapshot{}, fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	return entities.SessionSnapshot{SessionStorage: storage, State: state}, nil
}

// Apply - puts the cookies into the view and schedules the session storage replay
func Apply(ctx context.Context, view interfaces.SessionView, snapshot entities.SessionSnapshot, hostname string) error {
	if err := view.AddCookies(ctx, snapshot.State.Cookies); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	if len(snapshot.SessionStorage) == 0 {
		return nil
	}

	script, err := ReplayScript(hostname, snapshot.SessionStorage)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	if err := view.AddInitScript(ctx, script); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSessionIO, err)
	}
	return nil
}

// ReplayScript - builds the init script that writes entries into sessionStorage
// when the page is served from hostname
func ReplayScript(hostname string, entries map[string]string) (string, error) {
	host, err := json.Marshal(hostname)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`(entries => {
	if (window.location.hostname === %s) {
		for (const [key, value] of Object.entries(entries)) {
			window.sessionStorage.setItem(key, value);
		}
	}
})(%s)`, host, payload), nil
}
