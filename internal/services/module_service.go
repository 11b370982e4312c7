package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"venturekit/internal/catalog"
	"venturekit/internal/models"
)

// contextRefresher regenerates a user's context snapshot. Wired to the
// ContextService after construction; kept as a narrow interface so lifecycle
// tests can observe the trigger without a real synthesis engine.
type contextRefresher interface {
	RefreshUserContext(ctx context.Context, userID string) (bool, error)
}

// eventPublisher fans lifecycle events out to other instances and the UI.
type eventPublisher interface {
	Publish(ctx context.Context, userID, eventType string, payload map[string]interface{}) error
}

// ModuleService owns the per-user module lifecycle: activation, progress,
// pause/resume, sub-module completion, and dependency gating. Callers
// serialize mutations per user (single active UI session); the service takes
// no locks of its own.
type ModuleService struct {
	store   ModuleStore
	catalog *catalog.Catalog

	refresher contextRefresher
	publisher eventPublisher

	now func() time.Time
}

// NewModuleService creates a module lifecycle service.
func NewModuleService(store ModuleStore, cat *catalog.Catalog) *ModuleService {
	return &ModuleService{
		store:   store,
		catalog: cat,
		now:     time.Now,
	}
}

// SetContextRefresher wires the context synthesis engine. Optional: without
// it, completion transitions simply skip the snapshot refresh.
func (s *ModuleService) SetContextRefresher(refresher contextRefresher) {
	s.refresher = refresher
}

// SetEventPublisher wires the pub/sub fan-out. Optional.
func (s *ModuleService) SetEventPublisher(publisher eventPublisher) {
	s.publisher = publisher
}

// Activate starts (or restarts) a module for the user.
// A fresh record starts active at progress 0 with metadata seeded from the
// catalog entry. Re-activating a completed module resets progress to 0
// (explicit restart); any other existing record keeps its progress.
func (s *ModuleService) Activate(ctx context.Context, userID, moduleID string, extraMetadata map[string]interface{}) (*models.ModuleActivation, error) {
	def, ok := s.catalog.Get(moduleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	existing, err := s.store.GetActivation(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var activation models.ModuleActivation

	if existing == nil {
		seeded := map[string]interface{}{
			"category":       def.Category,
			"estimated_time": def.EstimatedTime,
		}
		activation = models.ModuleActivation{
			UserID:         userID,
			ModuleID:       moduleID,
			ModuleName:     def.Name,
			Status:         models.ModuleStatusActive,
			Progress:       0,
			Metadata:       mergeMetadata(seeded, extraMetadata),
			Outputs:        map[string]interface{}{},
			ActivatedAt:    now,
			LastActivityAt: now,
		}
	} else {
		activation = *existing
		if activation.Status == models.ModuleStatusCompleted {
			// Restart semantics: completing again later sets completedAt anew.
			log.Printf("🔄 [MODULES] Restarting completed module %s for user %s", moduleID, userID)
			activation.Progress = 0
			activation.CompletedAt = nil
		}
		activation.Status = models.ModuleStatusActive
		activation.Metadata = mergeMetadata(activation.Metadata, extraMetadata)
		activation.LastActivityAt = laterOf(activation.LastActivityAt, now)
	}

	if err := s.store.SaveActivation(ctx, &activation); err != nil {
		return nil, err
	}

	log.Printf("✅ [MODULES] Activated %s (%s) for user %s at %d%%", moduleID, def.Name, userID, activation.Progress)
	return &activation, nil
}

// UpdateProgress sets the module's progress, clamped to [0,100], merging any
// metadata patch. Reaching 100 atomically marks the module completed, sets
// completedAt once, and triggers a best-effort context refresh that can never
// fail the progress update itself.
func (s *ModuleService) UpdateProgress(ctx context.Context, userID, moduleID string, progress int, extraMetadata map[string]interface{}) (*models.ModuleActivation, error) {
	if !s.catalog.Exists(moduleID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	existing, err := s.store.GetActivation(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: module %s not activated for user %s", ErrNotFound, moduleID, userID)
	}

	clamped := clampProgress(progress)
	now := s.now()

	activation := *existing
	activation.Progress = clamped
	activation.Metadata = mergeMetadata(activation.Metadata, extraMetadata)
	activation.LastActivityAt = laterOf(activation.LastActivityAt, now)

	wasCompleted := existing.Status == models.ModuleStatusCompleted
	if clamped == 100 {
		activation.Status = models.ModuleStatusCompleted
		if activation.CompletedAt == nil {
			completedAt := now
			activation.CompletedAt = &completedAt
		}
	} else if wasCompleted {
		// Progress moved back off 100: the completed status no longer holds.
		activation.Status = models.ModuleStatusActive
		activation.CompletedAt = nil
	}

	if err := s.store.SaveActivation(ctx, &activation); err != nil {
		return nil, err
	}

	if clamped == 100 && !wasCompleted {
		s.onModuleCompleted(ctx, userID, moduleID)
	}

	return &activation, nil
}

// onModuleCompleted runs the side effects of a completion transition. All of
// it is best effort: module progress is the source of truth and a failed
// snapshot refresh must never surface as a progress failure.
func (s *ModuleService) onModuleCompleted(ctx context.Context, userID, moduleID string) {
	log.Printf("🎉 [MODULES] Module %s completed for user %s", moduleID, userID)

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, userID, "module.completed", map[string]interface{}{
			"module_id": moduleID,
		})
		if err != nil {
			log.Printf("⚠️  [MODULES] Failed to publish completion event for %s: %v", moduleID, err)
		}
	}

	if s.refresher == nil {
		return
	}
	if _, err := s.refresher.RefreshUserContext(ctx, userID); err != nil {
		log.Printf("⚠️  [MODULES] Context refresh after completing %s failed: %v", moduleID, err)
	}
}

// Pause moves an active module to paused. Any other starting state is a
// recoverable no-op returning nil, not an error.
func (s *ModuleService) Pause(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error) {
	return s.transition(ctx, userID, moduleID, models.ModuleStatusActive, models.ModuleStatusPaused)
}

// Resume moves a paused module back to active. Any other starting state is a
// recoverable no-op returning nil.
func (s *ModuleService) Resume(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error) {
	return s.transition(ctx, userID, moduleID, models.ModuleStatusPaused, models.ModuleStatusActive)
}

func (s *ModuleService) transition(ctx context.Context, userID, moduleID string, from, to models.ModuleStatus) (*models.ModuleActivation, error) {
	existing, err := s.store.GetActivation(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.Status != from {
		log.Printf("⚠️  [MODULES] Ignoring %s→%s for module %s (user %s): %v", from, to, moduleID, userID, ErrWrongState)
		return nil, nil
	}

	activation := *existing
	activation.Status = to
	activation.LastActivityAt = laterOf(activation.LastActivityAt, s.now())

	if err := s.store.SaveActivation(ctx, &activation); err != nil {
		return nil, err
	}
	return &activation, nil
}

// CompleteSubModule upserts the sub-module completion, then recomputes the
// module's progress over required sub-modules only and applies it via
// UpdateProgress. The completion write is durably applied before the progress
// recomputation is issued.
func (s *ModuleService) CompleteSubModule(ctx context.Context, userID, moduleID, subModuleID string, data map[string]interface{}) (*models.ModuleActivation, error) {
	def, ok := s.catalog.Get(moduleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	completion := models.SubModuleCompletion{
		UserID:      userID,
		ModuleID:    moduleID,
		SubModuleID: subModuleID,
		Data:        data,
		CompletedAt: s.now(),
	}
	if err := s.store.SaveSubModuleCompletion(ctx, &completion); err != nil {
		return nil, err
	}

	completions, err := s.store.ListSubModuleCompletions(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}

	completedIDs := make([]string, 0, len(completions))
	completedSet := make(map[string]bool, len(completions))
	for _, c := range completions {
		completedIDs = append(completedIDs, c.SubModuleID)
		completedSet[c.SubModuleID] = true
	}
	sort.Strings(completedIDs)

	patch := map[string]interface{}{
		"completed_submodules": completedIDs,
	}

	required := def.RequiredSubModules()
	if len(required) == 0 {
		// Manual-progress module: record the completion without recomputing.
		existing, err := s.store.GetActivation(ctx, userID, moduleID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: module %s not activated for user %s", ErrNotFound, moduleID, userID)
		}
		return s.UpdateProgress(ctx, userID, moduleID, existing.Progress, patch)
	}

	doneRequired := 0
	for _, id := range required {
		if completedSet[id] {
			doneRequired++
		}
	}
	progress := int(math.Round(100 * float64(doneRequired) / float64(len(required))))

	return s.UpdateProgress(ctx, userID, moduleID, progress, patch)
}

// CheckDependencies reports whether every module the catalog entry depends on
// has been completed by this user. No declared dependencies means unlocked.
func (s *ModuleService) CheckDependencies(ctx context.Context, userID, moduleID string) (bool, error) {
	def, ok := s.catalog.Get(moduleID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	if len(def.Dependencies) == 0 {
		return true, nil
	}

	activations, err := s.store.ListActivations(ctx, userID)
	if err != nil {
		return false, err
	}

	completed := make(map[string]bool, len(activations))
	for _, a := range activations {
		if a.Status == models.ModuleStatusCompleted {
			completed[a.ModuleID] = true
		}
	}

	for _, dep := range def.Dependencies {
		if !completed[dep] {
			return false, nil
		}
	}
	return true, nil
}

// GetActivation returns the activation record for one module, or nil.
func (s *ModuleService) GetActivation(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error) {
	if !s.catalog.Exists(moduleID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	return s.store.GetActivation(ctx, userID, moduleID)
}

// ListActivations returns all module records for the user.
func (s *ModuleService) ListActivations(ctx context.Context, userID string) ([]models.ModuleActivation, error) {
	return s.store.ListActivations(ctx, userID)
}

// ActiveModules returns only records currently in the active state.
func (s *ModuleService) ActiveModules(ctx context.Context, userID string) ([]models.ModuleActivation, error) {
	return s.filterByStatus(ctx, userID, models.ModuleStatusActive)
}

// CompletedModules returns only completed records.
func (s *ModuleService) CompletedModules(ctx context.Context, userID string) ([]models.ModuleActivation, error) {
	return s.filterByStatus(ctx, userID, models.ModuleStatusCompleted)
}

func (s *ModuleService) filterByStatus(ctx context.Context, userID string, status models.ModuleStatus) ([]models.ModuleActivation, error) {
	activations, err := s.store.ListActivations(ctx, userID)
	if err != nil {
		return nil, err
	}
	var filtered []models.ModuleActivation
	for _, a := range activations {
		if a.Status == status {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// NextSuggestions returns catalog modules the user has not started (or has
// left inactive) whose dependencies are all satisfied, in catalog order.
func (s *ModuleService) NextSuggestions(ctx context.Context, userID string) ([]models.ModuleDefinition, error) {
	activations, err := s.store.ListActivations(ctx, userID)
	if err != nil {
		return nil, err
	}

	byModule := make(map[string]models.ModuleActivation, len(activations))
	completed := make(map[string]bool, len(activations))
	for _, a := range activations {
		byModule[a.ModuleID] = a
		if a.Status == models.ModuleStatusCompleted {
			completed[a.ModuleID] = true
		}
	}

	var suggestions []models.ModuleDefinition
	for _, def := range s.catalog.All() {
		if a, started := byModule[def.ID]; started && a.Status != models.ModuleStatusInactive {
			continue
		}
		unlocked := true
		for _, dep := range def.Dependencies {
			if !completed[dep] {
				unlocked = false
				break
			}
		}
		if unlocked {
			suggestions = append(suggestions, def)
		}
	}
	return suggestions, nil
}

// mergeMetadata overlays patch onto existing without dropping keys absent
// from the patch. Returns a fresh map; inputs are never mutated.
func mergeMetadata(existing, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
