package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/markdown"
	"pomo/internal/platform/slug"
)

const (
	SchemaVersion   = 1
	statusBlockName = "status"
	anonymousDir    = "_anonymous"
)

// VaultSessionStore keeps one markdown note per session under
// sessions/<owner>/<id>.md. Frontmatter holds the record; a managed block in the
// body is regenerated on every write and anything else in the note is kept.
type VaultSessionStore struct {
	root string
	mu   sync.Mutex
}

type sessionFrontmatter struct {
	SchemaVersion         int       `yaml:"schema_version"`
	ID                    string    `yaml:"id"`
	Owner                 *string   `yaml:"owner"`
	FocusMinutes          int       `yaml:"focus_duration"`
	RestMinutes           int       `yaml:"rest_duration"`
	PeriodType            string    `yaml:"current_period_type"`
	PeriodStart           time.Time `yaml:"current_period_start"`
	PeriodEnd             time.Time `yaml:"current_period_end"`
	Active                bool      `yaml:"is_active"`
	Paused                bool      `yaml:"is_paused"`
	PausedAt              time.Time `yaml:"paused_at,omitempty"`
	CompletedFocusPeriods int       `yaml:"completed_focus_periods"`
	CreatedAt             time.Time `yaml:"created_at"`
	UpdatedAt             time.Time `yaml:"updated_at"`
	Version               int64     `yaml:"version"`
}

func NewVaultSessionStore(root string) (*VaultSessionStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "sessions"), 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &VaultSessionStore{root: root}, nil
}

var _ sessionout.SessionStore = (*VaultSessionStore)(nil)

func (s *VaultSessionStore) Insert(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Version == 0 {
		session.Version = 1
	}
	if _, err := s.locate(session.ID); err == nil {
		return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
	}
	return s.write(s.pathFor(session), "", session)
}

func (s *VaultSessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	path, err := s.locate(id)
	if err != nil {
		return domain.Session{}, err
	}
	session, _, err := readNote(path)
	return session, err
}

func (s *VaultSessionStore) Update(_ context.Context, id string, mutate sessionout.Mutator) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, err := s.locate(id)
	if err != nil {
		return domain.Session{}, err
	}
	current, body, err := readNote(path)
	if err != nil {
		return domain.Session{}, err
	}
	next, err := mutate(current)
	if err != nil {
		return domain.Session{}, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1

	onDisk, _, err := readNote(path)
	if err != nil {
		return domain.Session{}, err
	}
	if onDisk.Version != current.Version {
		return domain.Session{}, fmt.Errorf("%w: %s at version %d", apperrors.ErrConflict, id, current.Version)
	}
	if err := s.write(path, body, next); err != nil {
		return domain.Session{}, err
	}
	return next, nil
}

func (s *VaultSessionStore) ListActive(_ context.Context) ([]domain.Session, error) {
	var out []domain.Session
	err := filepath.WalkDir(filepath.Join(s.root, "sessions"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		session, _, err := readNote(path)
		if err != nil {
			return err
		}
		if session.Active {
			out = append(out, session)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list session notes: %w", err)
	}
	return out, nil
}

func (s *VaultSessionStore) Close() error {
	return nil
}

func (s *VaultSessionStore) pathFor(session domain.Session) string {
	dir := anonymousDir
	if id, ok := session.Owner.ID(); ok {
		dir = slug.Make(id, anonymousDir)
	}
	return filepath.Join(s.root, "sessions", dir, session.ID+".md")
}

func (s *VaultSessionStore) locate(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\*?[`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "sessions", "*", id+".md"))
	if err != nil {
		return "", fmt.Errorf("locate session %s: %w", id, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	return matches[0], nil
}

func readNote(path string) (domain.Session, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, "", fmt.Errorf("%w: %s", apperrors.ErrNotFound, filepath.Base(path))
		}
		return domain.Session{}, "", fmt.Errorf("read session note: %w", err)
	}
	var meta sessionFrontmatter
	body, err := markdown.DecodeFrontmatter(string(raw), &meta)
	if err != nil {
		return domain.Session{}, "", fmt.Errorf("decode session note %s: %w", filepath.Base(path), err)
	}
	if meta.ID == "" {
		return domain.Session{}, "", fmt.Errorf("session note %s has no id", filepath.Base(path))
	}
	return domain.Session{
		ID:                    meta.ID,
		Owner:                 domain.OwnerFromPtr(meta.Owner),
		FocusMinutes:          meta.FocusMinutes,
		RestMinutes:           meta.RestMinutes,
		PeriodType:            domain.PeriodType(meta.PeriodType),
		PeriodStart:           meta.PeriodStart,
		PeriodEnd:             meta.PeriodEnd,
		Active:                meta.Active,
		Paused:                meta.Paused,
		PausedAt:              meta.PausedAt,
		CompletedFocusPeriods: meta.CompletedFocusPeriods,
		CreatedAt:             meta.CreatedAt,
		UpdatedAt:             meta.UpdatedAt,
		Version:               meta.Version,
	}, body, nil
}

func (s *VaultSessionStore) write(path, body string, session domain.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		body = fmt.Sprintf("# Pomodoro %s\n", session.ID)
	}
	body = markdown.ReplaceManagedBlock(body, statusBlockName, renderStatus(session))
	meta := sessionFrontmatter{
		SchemaVersion:         SchemaVersion,
		ID:                    session.ID,
		Owner:                 session.Owner.Ptr(),
		FocusMinutes:          session.FocusMinutes,
		RestMinutes:           session.RestMinutes,
		PeriodType:            string(session.PeriodType),
		PeriodStart:           session.PeriodStart.UTC(),
		PeriodEnd:             session.PeriodEnd.UTC(),
		Active:                session.Active,
		Paused:                session.Paused,
		PausedAt:              session.PausedAt.UTC(),
		CompletedFocusPeriods: session.CompletedFocusPeriods,
		CreatedAt:             session.CreatedAt.UTC(),
		UpdatedAt:             session.UpdatedAt.UTC(),
		Version:               session.Version,
	}
	rendered, err := markdown.EncodeFrontmatter(meta, body)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write session note: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session note: %w", err)
	}
	return nil
}

func renderStatus(session domain.Session) string {
	state := "inactive"
	switch {
	case session.Active && session.Paused:
		state = "paused"
	case session.Active:
		state = "running"
	}
	return fmt.Sprintf("- State: %s\n- Period: %s (%d/%d min)\n- Ends: %s\n- Completed focus periods: %d",
		state, session.PeriodType, session.FocusMinutes, session.RestMinutes,
		session.PeriodEnd.UTC().Format(time.RFC3339), session.CompletedFocusPeriods)
}
