package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"venturekit/internal/models"
)

const (
	notSet       = "Not set"
	topicLimit   = 5
	timeLayout   = "2006-01-02"
	renderHeader = "# Business Context"
)

// activationSource lists a user's module records.
type activationSource interface {
	ListActivations(ctx context.Context, userID string) ([]models.ModuleActivation, error)
}

// conversationSource supplies the conversation aggregates.
type conversationSource interface {
	Stats(ctx context.Context, userID string) (models.ConversationStats, error)
	TopMemories(ctx context.Context, userID string, limit int) ([]models.TopicMemory, error)
}

// profileSource supplies the user's business profile.
type profileSource interface {
	Get(ctx context.Context, userID string) (*models.CompleteProfile, error)
}

// SynthesisResult is the outcome of one context synthesis pass.
type SynthesisResult struct {
	Rendered   string
	Structured models.ContextSnapshot
	Hash       string
	Persisted  bool
}

// ContextService is the context synthesis engine: it folds the profile, the
// module lifecycle state, and conversation aggregates into one hashed
// snapshot, persisted only when the hash actually changed.
type ContextService struct {
	modules    activationSource
	convos     conversationSource
	profiles   profileSource
	store      SnapshotStore
	extractors *DecisionExtractorRegistry
	publisher  eventPublisher
	metrics    *Metrics
}

// NewContextService creates a context synthesis engine.
func NewContextService(modules activationSource, convos conversationSource, profiles profileSource, store SnapshotStore) *ContextService {
	return &ContextService{
		modules:    modules,
		convos:     convos,
		profiles:   profiles,
		store:      store,
		extractors: NewDecisionExtractorRegistry(),
	}
}

// SetEventPublisher wires the pub/sub fan-out. Optional.
func (s *ContextService) SetEventPublisher(publisher eventPublisher) {
	s.publisher = publisher
}

// SetMetrics wires snapshot write/skip counters. Optional.
func (s *ContextService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// Extractors exposes the decision extractor registry so deployments can
// register extractors for custom catalog modules.
func (s *ContextService) Extractors() *DecisionExtractorRegistry {
	return s.extractors
}

// Synthesize builds the snapshot for the user. When activations is nil the
// full module set is fetched; callers holding a fresh copy pass it in to
// avoid the extra read.
func (s *ContextService) Synthesize(ctx context.Context, userID string, profile *models.CompleteProfile, activations []models.ModuleActivation) (*SynthesisResult, error) {
	if activations == nil {
		var err error
		activations, err = s.modules.ListActivations(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	stats, err := s.convos.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	memories, err := s.convos.TopMemories(ctx, userID, topicLimit)
	if err != nil {
		return nil, err
	}

	snapshot := s.buildSnapshot(profile, activations, stats, memories)
	rendered := renderSnapshot(snapshot)

	sum := sha256.Sum256([]byte(rendered))
	hash := hex.EncodeToString(sum[:])

	return &SynthesisResult{
		Rendered:   rendered,
		Structured: snapshot,
		Hash:       hash,
	}, nil
}

// Persist writes the snapshot for the user unless the stored hash already
// matches, in which case it succeeds without a write. A missing destination
// collection is a soft failure: logged, reported as false, never an error.
func (s *ContextService) Persist(ctx context.Context, userID string, result *SynthesisResult) (bool, error) {
	existing, err := s.store.Get(ctx, userID)
	if err != nil {
		if isNotProvisioned(err) {
			log.Printf("⚠️  [CONTEXT] Snapshot store not provisioned, skipping persist for user %s", userID)
			return false, nil
		}
		return false, err
	}

	if existing != nil && existing.Hash == result.Hash {
		log.Printf("⏭️  [CONTEXT] Snapshot unchanged for user %s (hash %s), skipping write", userID, shortHash(result.Hash))
		if s.metrics != nil {
			s.metrics.SnapshotSkips.Inc()
		}
		return false, nil
	}

	err = s.store.Save(ctx, &models.BusinessContext{
		UserID:     userID,
		Rendered:   result.Rendered,
		Structured: result.Structured,
		Hash:       result.Hash,
	})
	if err != nil {
		if isNotProvisioned(err) {
			log.Printf("⚠️  [CONTEXT] Snapshot store not provisioned, skipping persist for user %s", userID)
			return false, nil
		}
		return false, err
	}

	result.Persisted = true
	if s.metrics != nil {
		s.metrics.SnapshotWrites.Inc()
	}
	if s.publisher != nil {
		pubErr := s.publisher.Publish(ctx, userID, "context.updated", map[string]interface{}{
			"hash": result.Hash,
		})
		if pubErr != nil {
			log.Printf("⚠️  [CONTEXT] Failed to publish context update for user %s: %v", userID, pubErr)
		}
	}

	log.Printf("✅ [CONTEXT] Persisted snapshot for user %s (hash %s)", userID, shortHash(result.Hash))
	return true, nil
}

// RefreshUserContext synthesizes and persists in one step. Returns whether a
// write actually happened. A missing profile synthesizes against placeholders
// rather than failing; the snapshot is a best-effort derived view.
func (s *ContextService) RefreshUserContext(ctx context.Context, userID string) (bool, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	result, err := s.Synthesize(ctx, userID, profile, nil)
	if err != nil {
		return false, err
	}

	return s.Persist(ctx, userID, result)
}

// GetStored returns the user's persisted snapshot, or nil.
func (s *ContextService) GetStored(ctx context.Context, userID string) (*models.BusinessContext, error) {
	snapshot, err := s.store.Get(ctx, userID)
	if err != nil && isNotProvisioned(err) {
		return nil, nil
	}
	return snapshot, err
}

func (s *ContextService) buildSnapshot(profile *models.CompleteProfile, activations []models.ModuleActivation, stats models.ConversationStats, memories []models.TopicMemory) models.ContextSnapshot {
	if profile == nil {
		profile = &models.CompleteProfile{}
	}

	snapshot := models.ContextSnapshot{
		FullName:       profile.FullName,
		BusinessName:   profile.BusinessName,
		BusinessType:   profile.BusinessType,
		Industry:       profile.Industry,
		Description:    profile.Description,
		TargetAudience: profile.TargetAudience,
		State:          profile.State,
		Stage:          profile.Stage,
		Preferences:    profile.Preferences,
	}

	// Progress block
	var lastActivity *time.Time
	for _, a := range activations {
		switch a.Status {
		case models.ModuleStatusCompleted:
			snapshot.Progress.ModulesCompleted = append(snapshot.Progress.ModulesCompleted, a.ModuleID)
		case models.ModuleStatusActive:
			snapshot.Progress.ModulesActive = append(snapshot.Progress.ModulesActive, a.ModuleID)
		}
		if lastActivity == nil || a.LastActivityAt.After(*lastActivity) {
			t := a.LastActivityAt
			lastActivity = &t
		}
	}
	snapshot.Progress.TotalCompleted = len(snapshot.Progress.ModulesCompleted)
	snapshot.Progress.LastActivityAt = lastActivity

	snapshot.Decisions = s.extractors.Extract(activations)
	snapshot.Outputs = buildOutputsSummary(activations)

	snapshot.Conversations.MessageCount = stats.MessageCount
	snapshot.Conversations.LastConversationAt = stats.LastConversationAt
	for _, m := range memories {
		snapshot.Conversations.Topics = append(snapshot.Conversations.Topics, m.Topic)
	}

	return snapshot
}

// buildOutputsSummary condenses module outputs: a deduplicated document list,
// the branding summary, and website status.
func buildOutputsSummary(activations []models.ModuleActivation) models.OutputsSummary {
	var summary models.OutputsSummary
	seen := make(map[string]bool)

	for _, a := range activations {
		if a.Outputs == nil {
			continue
		}

		for _, doc := range stringSliceField(a.Outputs, "documents") {
			if !seen[doc] {
				seen[doc] = true
				summary.Documents = append(summary.Documents, doc)
			}
		}

		switch a.ModuleID {
		case "MOD_301":
			summary.Branding.PrimaryColor = stringField(a.Outputs, "primary_color")
			summary.Branding.SecondaryColor = stringField(a.Outputs, "secondary_color")
			summary.Branding.FontFamily = stringField(a.Outputs, "font_family")
			summary.Branding.LogoURL = stringField(a.Outputs, "logo_url")
		case "MOD_401":
			summary.WebsiteStatus = stringField(a.Outputs, "website_status")
			summary.Domain = stringField(a.Outputs, "domain")
		}
	}

	return summary
}

// renderSnapshot produces the canonical textual form: fixed section order,
// fixed key order, explicit placeholders for unset fields. The hash is
// computed over exactly this text, so any change here invalidates every
// stored hash. Extend at the end, never reorder.
func renderSnapshot(snapshot models.ContextSnapshot) string {
	var sb strings.Builder

	sb.WriteString(renderHeader + "\n\n")

	sb.WriteString("## Identity\n")
	writeField(&sb, "Name", snapshot.FullName)
	writeField(&sb, "Business", snapshot.BusinessName)
	writeField(&sb, "Type", snapshot.BusinessType)
	writeField(&sb, "Industry", snapshot.Industry)
	writeField(&sb, "Description", snapshot.Description)
	writeField(&sb, "Target audience", snapshot.TargetAudience)
	writeField(&sb, "State", snapshot.State)
	writeField(&sb, "Stage", snapshot.Stage)
	sb.WriteString("\n")

	sb.WriteString("## Progress\n")
	writeField(&sb, "Modules completed", joinOrPlaceholder(snapshot.Progress.ModulesCompleted))
	writeField(&sb, "Modules active", joinOrPlaceholder(snapshot.Progress.ModulesActive))
	sb.WriteString(fmt.Sprintf("- Total completed: %d\n", snapshot.Progress.TotalCompleted))
	writeField(&sb, "Last activity", dateOrPlaceholder(snapshot.Progress.LastActivityAt))
	sb.WriteString("\n")

	sb.WriteString("## Decisions\n")
	if len(snapshot.Decisions) == 0 {
		sb.WriteString("- " + notSet + "\n")
	}
	for _, d := range snapshot.Decisions {
		line := fmt.Sprintf("- %s: %s (%s)", d.Type, d.Choice, d.Date.Format(timeLayout))
		if d.Reason != "" {
			line += ", because " + d.Reason
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Outputs\n")
	writeField(&sb, "Documents", joinOrPlaceholder(snapshot.Outputs.Documents))
	writeField(&sb, "Primary color", snapshot.Outputs.Branding.PrimaryColor)
	writeField(&sb, "Secondary color", snapshot.Outputs.Branding.SecondaryColor)
	writeField(&sb, "Font", snapshot.Outputs.Branding.FontFamily)
	writeField(&sb, "Logo", snapshot.Outputs.Branding.LogoURL)
	writeField(&sb, "Website status", snapshot.Outputs.WebsiteStatus)
	writeField(&sb, "Domain", snapshot.Outputs.Domain)
	sb.WriteString("\n")

	sb.WriteString("## Preferences\n")
	writeField(&sb, "Communication style", snapshot.Preferences.CommunicationStyle)
	writeField(&sb, "Detail level", snapshot.Preferences.DetailLevel)
	sb.WriteString("\n")

	sb.WriteString("## Conversations\n")
	sb.WriteString(fmt.Sprintf("- Messages: %d\n", snapshot.Conversations.MessageCount))
	writeField(&sb, "Last conversation", dateOrPlaceholder(snapshot.Conversations.LastConversationAt))
	writeField(&sb, "Topics", joinOrPlaceholder(snapshot.Conversations.Topics))

	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		value = notSet
	}
	sb.WriteString(fmt.Sprintf("- %s: %s\n", label, value))
}

func joinOrPlaceholder(values []string) string {
	if len(values) == 0 {
		return notSet
	}
	return strings.Join(values, ", ")
}

func dateOrPlaceholder(t *time.Time) string {
	if t == nil {
		return notSet
	}
	return t.UTC().Format(time.RFC3339)
}

func stringSliceField(m map[string]interface{}, key string) []string {
	var out []string
	switch v := m[key].(type) {
	case []string:
		out = v
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
