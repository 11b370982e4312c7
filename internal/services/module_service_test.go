package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"venturekit/internal/catalog"
	"venturekit/internal/models"
)

// fakeModuleStore is an in-memory ModuleStore for lifecycle tests.
type fakeModuleStore struct {
	activations map[string]*models.ModuleActivation   // userID|moduleID
	completions map[string]*models.SubModuleCompletion // userID|subModuleID
	saveErr     error
}

func newFakeModuleStore() *fakeModuleStore {
	return &fakeModuleStore{
		activations: make(map[string]*models.ModuleActivation),
		completions: make(map[string]*models.SubModuleCompletion),
	}
}

func actKey(userID, moduleID string) string { return userID + "|" + moduleID }

func (f *fakeModuleStore) GetActivation(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error) {
	a, ok := f.activations[actKey(userID, moduleID)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeModuleStore) SaveActivation(ctx context.Context, activation *models.ModuleActivation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *activation
	f.activations[actKey(activation.UserID, activation.ModuleID)] = &copied
	return nil
}

func (f *fakeModuleStore) ListActivations(ctx context.Context, userID string) ([]models.ModuleActivation, error) {
	var out []models.ModuleActivation
	for _, a := range f.activations {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeModuleStore) SaveSubModuleCompletion(ctx context.Context, completion *models.SubModuleCompletion) error {
	copied := *completion
	f.completions[completion.UserID+"|"+completion.SubModuleID] = &copied
	return nil
}

func (f *fakeModuleStore) ListSubModuleCompletions(ctx context.Context, userID, moduleID string) ([]models.SubModuleCompletion, error) {
	var out []models.SubModuleCompletion
	for _, c := range f.completions {
		if c.UserID == userID && c.ModuleID == moduleID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeModuleStore) RecentlyActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, a := range f.activations {
		if a.LastActivityAt.After(since) && !seen[a.UserID] {
			seen[a.UserID] = true
			out = append(out, a.UserID)
		}
	}
	return out, nil
}

type fakeRefresher struct {
	calls []string
	err   error
}

func (f *fakeRefresher) RefreshUserContext(ctx context.Context, userID string) (bool, error) {
	f.calls = append(f.calls, userID)
	return f.err == nil, f.err
}

func newTestModuleService(t *testing.T) (*ModuleService, *fakeModuleStore) {
	t.Helper()
	store := newFakeModuleStore()
	svc := NewModuleService(store, catalog.New())
	return svc, store
}

func TestActivateNewModule(t *testing.T) {
	svc, _ := newTestModuleService(t)

	activation, err := svc.Activate(context.Background(), "user-1", "MOD_101", nil)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if activation.Status != models.ModuleStatusActive {
		t.Errorf("expected status active, got %s", activation.Status)
	}
	if activation.Progress != 0 {
		t.Errorf("expected progress 0, got %d", activation.Progress)
	}
	if activation.CompletedAt != nil {
		t.Error("expected nil completedAt on fresh activation")
	}
	if activation.Metadata["category"] != "foundation" {
		t.Errorf("expected seeded category, got %v", activation.Metadata["category"])
	}
	if activation.ActivatedAt.IsZero() || activation.LastActivityAt.IsZero() {
		t.Error("expected activation timestamps to be set")
	}
}

func TestActivateUnknownModule(t *testing.T) {
	svc, _ := newTestModuleService(t)

	_, err := svc.Activate(context.Background(), "user-1", "MOD_999", nil)
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestActivateRestartsCompletedModule(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	completed, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completedAt after reaching 100")
	}

	restarted, err := svc.Activate(ctx, "user-1", "MOD_101", nil)
	if err != nil {
		t.Fatalf("re-Activate failed: %v", err)
	}
	if restarted.Status != models.ModuleStatusActive {
		t.Errorf("expected active after restart, got %s", restarted.Status)
	}
	if restarted.Progress != 0 {
		t.Errorf("expected progress reset to 0, got %d", restarted.Progress)
	}
	if restarted.CompletedAt != nil {
		t.Error("expected completedAt cleared on restart")
	}
}

func TestActivateKeepsProgressOnNonCompleted(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 40, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if _, err := svc.Pause(ctx, "user-1", "MOD_101"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	reactivated, err := svc.Activate(ctx, "user-1", "MOD_101", nil)
	if err != nil {
		t.Fatalf("re-Activate failed: %v", err)
	}
	if reactivated.Progress != 40 {
		t.Errorf("expected progress kept at 40, got %d", reactivated.Progress)
	}
	if reactivated.Status != models.ModuleStatusActive {
		t.Errorf("expected active, got %s", reactivated.Status)
	}
}

func TestUpdateProgressClamping(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"negative clamps to zero", -20, 0},
		{"zero stays", 0, 0},
		{"mid range stays", 55, 55},
		{"hundred stays", 100, 100},
		{"over hundred clamps", 150, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestModuleService(t)
			ctx := context.Background()
			if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
				t.Fatalf("Activate failed: %v", err)
			}

			activation, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", tt.input, nil)
			if err != nil {
				t.Fatalf("UpdateProgress failed: %v", err)
			}
			if activation.Progress != tt.want {
				t.Errorf("progress = %d, want %d", activation.Progress, tt.want)
			}

			wantCompleted := tt.want == 100
			gotCompleted := activation.Status == models.ModuleStatusCompleted
			if gotCompleted != wantCompleted {
				t.Errorf("completed = %v, want %v", gotCompleted, wantCompleted)
			}
			if wantCompleted && activation.CompletedAt == nil {
				t.Error("expected completedAt set at 100")
			}
			if !wantCompleted && activation.CompletedAt != nil {
				t.Error("expected nil completedAt below 100")
			}
		})
	}
}

func TestUpdateProgressUnactivatedModule(t *testing.T) {
	svc, _ := newTestModuleService(t)

	_, err := svc.UpdateProgress(context.Background(), "user-1", "MOD_101", 50, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletedAtSetOnce(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	svc.now = func() time.Time { return clock }

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	first, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	clock = base.Add(time.Hour)
	second, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil)
	if err != nil {
		t.Fatalf("second UpdateProgress failed: %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("completedAt changed on repeated completion: %v vs %v", second.CompletedAt, first.CompletedAt)
	}
}

func TestProgressDropReopensModule(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	reopened, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 80, nil)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if reopened.Status != models.ModuleStatusActive {
		t.Errorf("expected active after dropping below 100, got %s", reopened.Status)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected completedAt cleared when progress dropped below 100")
	}
}

func TestCompletionTriggersContextRefresh(t *testing.T) {
	svc, _ := newTestModuleService(t)
	refresher := &fakeRefresher{}
	svc.SetContextRefresher(refresher)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if len(refresher.calls) != 1 || refresher.calls[0] != "user-1" {
		t.Errorf("expected one refresh for user-1, got %v", refresher.calls)
	}

	// Repeating 100 is not a new transition.
	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if len(refresher.calls) != 1 {
		t.Errorf("expected no second refresh, got %d calls", len(refresher.calls))
	}
}

func TestRefreshFailureDoesNotFailProgress(t *testing.T) {
	svc, _ := newTestModuleService(t)
	svc.SetContextRefresher(&fakeRefresher{err: fmt.Errorf("synthesis down")})
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	activation, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil)
	if err != nil {
		t.Fatalf("expected progress update to succeed despite refresh failure: %v", err)
	}
	if activation.Status != models.ModuleStatusCompleted {
		t.Errorf("expected completed, got %s", activation.Status)
	}
}

func TestMetadataMergeNeverReplaces(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_201", map[string]interface{}{"notes": "keep me"}); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	activation, err := svc.UpdateProgress(ctx, "user-1", "MOD_201", 25, map[string]interface{}{
		"legal_structure": "LLC",
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	if activation.Metadata["notes"] != "keep me" {
		t.Errorf("existing key lost in merge: %v", activation.Metadata)
	}
	if activation.Metadata["legal_structure"] != "LLC" {
		t.Errorf("patched key missing: %v", activation.Metadata)
	}
	if activation.Metadata["category"] != "legal" {
		t.Errorf("seeded key lost in merge: %v", activation.Metadata)
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	paused, err := svc.Pause(ctx, "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if paused == nil || paused.Status != models.ModuleStatusPaused {
		t.Fatalf("expected paused record, got %+v", paused)
	}

	// Pausing again is a no-op, not an error.
	again, err := svc.Pause(ctx, "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("second Pause errored: %v", err)
	}
	if again != nil {
		t.Errorf("expected nil result for pause of paused module, got %+v", again)
	}

	resumed, err := svc.Resume(ctx, "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed == nil || resumed.Status != models.ModuleStatusActive {
		t.Fatalf("expected active record, got %+v", resumed)
	}

	// Resuming an active module is also a no-op.
	noop, err := svc.Resume(ctx, "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("Resume of active module errored: %v", err)
	}
	if noop != nil {
		t.Errorf("expected nil result, got %+v", noop)
	}
}

func TestPauseNeverActivatedModule(t *testing.T) {
	svc, _ := newTestModuleService(t)

	result, err := svc.Pause(context.Background(), "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("Pause errored: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for missing record, got %+v", result)
	}
}

func TestCompleteSubModuleProgress(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	// MOD_201 has 4 required sub-modules and 1 optional.
	if _, err := svc.Activate(ctx, "user-1", "MOD_201", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	activation, err := svc.CompleteSubModule(ctx, "user-1", "MOD_201", "SUB_201_STRUCTURE", nil)
	if err != nil {
		t.Fatalf("CompleteSubModule failed: %v", err)
	}
	if activation.Progress != 25 {
		t.Errorf("expected 25%% after 1 of 4 required, got %d", activation.Progress)
	}

	// Idempotent: completing it again changes nothing.
	activation, err = svc.CompleteSubModule(ctx, "user-1", "MOD_201", "SUB_201_STRUCTURE", nil)
	if err != nil {
		t.Fatalf("repeat CompleteSubModule failed: %v", err)
	}
	if activation.Progress != 25 {
		t.Errorf("expected 25%% after repeat completion, got %d", activation.Progress)
	}

	// Optional sub-modules do not move the needle.
	activation, err = svc.CompleteSubModule(ctx, "user-1", "MOD_201", "SUB_201_AGREEMENTS", nil)
	if err != nil {
		t.Fatalf("CompleteSubModule failed: %v", err)
	}
	if activation.Progress != 25 {
		t.Errorf("expected 25%% after optional completion, got %d", activation.Progress)
	}

	for _, sub := range []string{"SUB_201_STATE", "SUB_201_FILING", "SUB_201_EIN"} {
		activation, err = svc.CompleteSubModule(ctx, "user-1", "MOD_201", sub, nil)
		if err != nil {
			t.Fatalf("CompleteSubModule(%s) failed: %v", sub, err)
		}
	}
	if activation.Progress != 100 {
		t.Errorf("expected 100%% after all required, got %d", activation.Progress)
	}
	if activation.Status != models.ModuleStatusCompleted {
		t.Errorf("expected completed status, got %s", activation.Status)
	}

	subs, ok := activation.Metadata["completed_submodules"].([]string)
	if !ok {
		t.Fatalf("expected completed_submodules list in metadata, got %T", activation.Metadata["completed_submodules"])
	}
	if len(subs) != 5 {
		t.Errorf("expected 5 recorded sub-modules, got %d", len(subs))
	}
}

func TestCompleteSubModuleRoundsProgress(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	// MOD_301 has 3 required sub-modules: 1/3 rounds to 33, 2/3 to 67.
	if _, err := svc.Activate(ctx, "user-1", "MOD_301", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	activation, err := svc.CompleteSubModule(ctx, "user-1", "MOD_301", "SUB_301_PALETTE", nil)
	if err != nil {
		t.Fatalf("CompleteSubModule failed: %v", err)
	}
	if activation.Progress != 33 {
		t.Errorf("expected 33%%, got %d", activation.Progress)
	}

	activation, err = svc.CompleteSubModule(ctx, "user-1", "MOD_301", "SUB_301_LOGO", nil)
	if err != nil {
		t.Fatalf("CompleteSubModule failed: %v", err)
	}
	if activation.Progress != 67 {
		t.Errorf("expected 67%%, got %d", activation.Progress)
	}
}

func TestCheckDependencies(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	// MOD_101 has no dependencies.
	ok, err := svc.CheckDependencies(ctx, "user-1", "MOD_101")
	if err != nil {
		t.Fatalf("CheckDependencies failed: %v", err)
	}
	if !ok {
		t.Error("expected MOD_101 unlocked with no dependencies")
	}

	// MOD_201 depends on MOD_101.
	ok, err = svc.CheckDependencies(ctx, "user-1", "MOD_201")
	if err != nil {
		t.Fatalf("CheckDependencies failed: %v", err)
	}
	if ok {
		t.Error("expected MOD_201 locked before MOD_101 completes")
	}

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	ok, err = svc.CheckDependencies(ctx, "user-1", "MOD_201")
	if err != nil {
		t.Fatalf("CheckDependencies failed: %v", err)
	}
	if ok {
		t.Error("expected MOD_201 still locked while MOD_101 is only active")
	}

	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	ok, err = svc.CheckDependencies(ctx, "user-1", "MOD_201")
	if err != nil {
		t.Fatalf("CheckDependencies failed: %v", err)
	}
	if !ok {
		t.Error("expected MOD_201 unlocked after MOD_101 completed")
	}
}

func TestNextSuggestions(t *testing.T) {
	svc, _ := newTestModuleService(t)
	ctx := context.Background()

	suggestions, err := svc.NextSuggestions(ctx, "user-1")
	if err != nil {
		t.Fatalf("NextSuggestions failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].ID != "MOD_101" {
		t.Fatalf("expected only MOD_101 suggested for a fresh user, got %v", suggestions)
	}

	if _, err := svc.Activate(ctx, "user-1", "MOD_101", nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "user-1", "MOD_101", 100, nil); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	suggestions, err = svc.NextSuggestions(ctx, "user-1")
	if err != nil {
		t.Fatalf("NextSuggestions failed: %v", err)
	}
	ids := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		ids = append(ids, s.ID)
	}
	if len(ids) != 1 || ids[0] != "MOD_201" {
		t.Errorf("expected [MOD_201] after completing MOD_101, got %v", ids)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	svc, store := newTestModuleService(t)
	ctx := context.Background()

	store.saveErr = fmt.Errorf("%w: connection reset", ErrStoreUnavailable)
	_, err := svc.Activate(ctx, "user-1", "MOD_101", nil)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
