package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pomo/internal/modules/hook/domain"
	"pomo/internal/modules/hook/dto"
	"pomo/internal/modules/hook/service"
)

type staticStore []domain.Manifest

func (s staticStore) Load(context.Context) ([]domain.Manifest, error) {
	return s, nil
}

type fakeHost struct {
	mu       sync.Mutex
	notified []string
	fail     map[string]error
}

func (h *fakeHost) CheckLifecycle(context.Context, domain.Manifest) error {
	return nil
}

func (h *fakeHost) GetMetadata(_ context.Context, m domain.Manifest) (domain.Metadata, error) {
	return domain.Metadata{Name: m.Name, Version: m.Version}, nil
}

func (h *fakeHost) Notify(_ context.Context, m domain.Manifest, _ domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail[m.Name]; err != nil {
		return err
	}
	h.notified = append(h.notified, m.Name)
	return nil
}

func writeBinary(t *testing.T, dir, name string) (string, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	payload := []byte("hook-" + name)
	if err := os.WriteFile(path, payload, 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	sum := sha256.Sum256(payload)
	return path, hex.EncodeToString(sum[:])
}

func TestDoctorDetectsChecksumMismatch(t *testing.T) {
	t.Parallel()
	binPath, _ := writeBinary(t, t.TempDir(), "demo")
	svc := service.NewHookService(staticStore{{
		Name:    "demo",
		Version: "1.0.0",
		Binary:  binPath,
		SHA256:  strings.Repeat("0", 64),
		Enabled: true,
	}}, nil)
	results, err := svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if !results[0].BinaryReachable || results[0].ChecksumValid {
		t.Fatalf("unexpected doctor result %+v", results[0])
	}
}

func TestDoctorReportsMissingBinaryAndLifecycle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	okPath, okSum := writeBinary(t, dir, "ok")
	svc := service.NewHookService(staticStore{
		{Name: "ok", Version: "1", Binary: okPath, SHA256: okSum, Enabled: true},
		{Name: "gone", Version: "1", Binary: filepath.Join(dir, "gone"), SHA256: okSum, Enabled: true},
	}, &fakeHost{})
	results, err := svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if !results[0].LifecycleOK || results[0].Error != "" {
		t.Fatalf("expected healthy hook, got %+v", results[0])
	}
	if results[1].BinaryReachable || !strings.Contains(results[1].Error, "does not exist") {
		t.Fatalf("expected missing binary, got %+v", results[1])
	}
}

func TestListRejectsDuplicateNames(t *testing.T) {
	t.Parallel()
	sum := strings.Repeat("a", 64)
	svc := service.NewHookService(staticStore{
		{Name: "dup", Version: "1", Binary: "/tmp/a", SHA256: sum},
		{Name: "dup", Version: "2", Binary: "/tmp/b", SHA256: sum},
	}, nil)
	if _, err := svc.List(context.Background()); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestDispatchFiltersAndReportsFailures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	chimePath, chimeSum := writeBinary(t, dir, "chime")
	logPath, logSum := writeBinary(t, dir, "log")
	brokenPath, brokenSum := writeBinary(t, dir, "broken")
	stalePath, _ := writeBinary(t, dir, "stale")
	host := &fakeHost{fail: map[string]error{"broken": errors.New("boom")}}
	svc := service.NewHookService(staticStore{
		{Name: "chime", Version: "1", Binary: chimePath, SHA256: chimeSum, Enabled: true, Events: []domain.EventKind{domain.EventSwitched}},
		{Name: "log", Version: "1", Binary: logPath, SHA256: logSum, Enabled: true},
		{Name: "starts-only", Version: "1", Binary: logPath, SHA256: logSum, Enabled: true, Events: []domain.EventKind{domain.EventStarted}},
		{Name: "disabled", Version: "1", Binary: logPath, SHA256: logSum, Enabled: false},
		{Name: "broken", Version: "1", Binary: brokenPath, SHA256: brokenSum, Enabled: true},
		{Name: "stale", Version: "1", Binary: stalePath, SHA256: strings.Repeat("0", 64), Enabled: true},
	}, host)

	out, err := svc.Dispatch(context.Background(), dto.EventInput{
		Kind:      string(domain.EventSwitched),
		SessionID: "s1",
		From:      "focus",
		To:        "rest",
		Trigger:   "auto",
		At:        time.Date(2026, 1, 1, 9, 25, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if strings.Join(out.Delivered, ",") != "chime,log" {
		t.Fatalf("unexpected delivered hooks %v", out.Delivered)
	}
	if len(out.Failed) != 2 || out.Failed[0].Hook != "broken" || out.Failed[1].Hook != "stale" {
		t.Fatalf("unexpected failures %+v", out.Failed)
	}
	if !strings.Contains(out.Failed[1].Error, "checksum") {
		t.Fatalf("expected checksum failure, got %s", out.Failed[1].Error)
	}
}

func TestDispatchRejectsInvalidEvent(t *testing.T) {
	t.Parallel()
	svc := service.NewHookService(staticStore{}, &fakeHost{})
	if _, err := svc.Dispatch(context.Background(), dto.EventInput{Kind: "paused", SessionID: "s1"}); err == nil {
		t.Fatalf("expected invalid kind error")
	}
	if _, err := svc.Dispatch(context.Background(), dto.EventInput{Kind: "started"}); err == nil {
		t.Fatalf("expected missing session id error")
	}
}
