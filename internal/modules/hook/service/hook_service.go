package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"pomo/internal/modules/hook/domain"
	"pomo/internal/modules/hook/dto"
	hookout "pomo/internal/modules/hook/port/out"

	"golang.org/x/sync/errgroup"
)

const maxConcurrentHooks = 4

type HookService struct {
	store hookout.ManifestStore
	host  hookout.Host
}

func NewHookService(store hookout.ManifestStore, host hookout.Host) *HookService {
	return &HookService{store: store, host: host}
}

func (s *HookService) List(ctx context.Context) ([]dto.HookInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.HookInfo, 0, len(manifests))
	for _, m := range manifests {
		events := make([]string, 0, len(m.Events))
		for _, e := range m.Events {
			events = append(events, string(e))
		}
		out = append(out, dto.HookInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Events: events})
	}
	return out, nil
}

func (s *HookService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		binaryOK := fileExists(m.Binary)
		result.BinaryReachable = binaryOK
		checksumOK := false
		if binaryOK {
			checksumOK = checksumMatches(m.Binary, m.SHA256) == nil
		}
		result.ChecksumValid = checksumOK
		if binaryOK && checksumOK && m.Enabled && s.host != nil {
			if err := s.host.CheckLifecycle(ctx, m); err != nil {
				result.Error = err.Error()
			} else {
				result.LifecycleOK = true
			}
		}
		if !binaryOK {
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		}
		if binaryOK && !checksumOK {
			result.Error = "checksum mismatch"
		}
		results = append(results, result)
	}
	return results, nil
}

// Dispatch delivers the event to every enabled hook subscribed to its kind.
// Individual hook failures are reported in the output, not as an error.
func (s *HookService) Dispatch(ctx context.Context, input dto.EventInput) (dto.DispatchOutput, error) {
	event := domain.Event{
		Kind:                  domain.EventKind(input.Kind),
		SessionID:             input.SessionID,
		Owner:                 input.Owner,
		From:                  input.From,
		To:                    input.To,
		CompletedFocusPeriods: input.CompletedFocusPeriods,
		Trigger:               input.Trigger,
		At:                    input.At,
	}
	if err := event.Validate(); err != nil {
		return dto.DispatchOutput{}, err
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return dto.DispatchOutput{}, err
	}

	var (
		mu  sync.Mutex
		out dto.DispatchOutput
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentHooks)
	for _, manifest := range manifests {
		if !manifest.Enabled || !manifest.Subscribes(event.Kind) {
			continue
		}
		manifest := manifest
		group.Go(func() error {
			err := s.deliver(groupCtx, manifest, event)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed = append(out.Failed, dto.DispatchFailure{Hook: manifest.Name, Error: err.Error()})
				return nil
			}
			out.Delivered = append(out.Delivered, manifest.Name)
			return nil
		})
	}
	_ = group.Wait()

	sort.Strings(out.Delivered)
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].Hook < out.Failed[j].Hook })
	return out, nil
}

func (s *HookService) deliver(ctx context.Context, manifest domain.Manifest, event domain.Event) error {
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return err
	}
	if s.host == nil {
		return fmt.Errorf("no hook host configured")
	}
	if err := s.host.Notify(ctx, manifest, event); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", domain.ErrHookTimeout, manifest.Name)
		}
		return err
	}
	return nil
}

func (s *HookService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate hook name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read hook binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	if hex.EncodeToString(hash[:]) != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
