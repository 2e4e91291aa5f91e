package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/gemini"
	"github.com/kairosbot/kairos/internal/store"
)

// ErrVaultNotConfigured is returned by Refresh when no vault path is set.
var ErrVaultNotConfigured = errors.New("obsidian vault path is not configured")

// ContextMap is the structured strategic context extracted from the vault.
type ContextMap struct {
	PrimaryGoals []struct {
		Goal        string `json:"goal"`
		Deadline    string `json:"deadline"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	} `json:"primary_goals"`
	ActiveProjects   []string `json:"active_projects"`
	SkillGaps        []string `json:"skill_gaps"`
	RecentFocusAreas []string `json:"recent_focus_areas"`
	CriticalDeadlines []struct {
		Event string `json:"event"`
		Date  string `json:"date"`
	} `json:"critical_deadlines"`
	IdentityContext string `json:"identity_context"`
}

// ContextManager builds the context map from the vault with the pro Gemini
// model and serves the cached copy from disk.
type ContextManager struct {
	gen     gemini.Generator
	reader  *Reader
	store   *store.Store
	model   string
	mapPath string
	logger  *zap.Logger

	mu     sync.Mutex
	cached string
}

// NewContextManager wires the context manager. A nil reader is allowed when
// the vault path is not configured; Refresh then reports an error but the
// cached map (if any) keeps serving.
func NewContextManager(gen gemini.Generator, reader *Reader, st *store.Store, cfg *config.Config, logger *zap.Logger) *ContextManager {
	return &ContextManager{
		gen:     gen,
		reader:  reader,
		store:   st,
		model:   cfg.Gemini.ProModel,
		mapPath: filepath.Join(cfg.DataDir, "context_map.json"),
		logger:  logger.Named("context"),
	}
}

// ContextString returns the cached context map as a string for prompt
// building. It degrades to a placeholder when no map exists yet.
func (m *ContextManager) ContextString() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached
	}

	data, err := os.ReadFile(m.mapPath)
	if os.IsNotExist(err) {
		m.logger.Warn("Context map not found. Triage will be less accurate.")

		return "No context available."
	}
	if err != nil {
		m.logger.Error("Error loading context map", zap.Error(err))

		return "Error loading context."
	}

	m.cached = string(data)

	return m.cached
}

// Refresh re-analyzes the vault with the pro model and persists the new
// context map.
func (m *ContextManager) Refresh(ctx context.Context) (*ContextMap, error) {
	if m.reader == nil {
		return nil, ErrVaultNotConfigured
	}

	m.logger.Info("Starting vault analysis for context...")
	vaultContent, err := m.reader.AllContextText()
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`
You are a strategic advisor analyzing a user's knowledge base (Obsidian vault) to extract their current life context and goals.

The user has following primary pillars in their life right now:
1. Health and fitness.
2. Career and livelihood goals.
3. Quality of life and maintenance.

Analyze the following vault content and extract a structured JSON map.

VAULT CONTENT:
%s

OUTPUT FORMAT (JSON ONLY):
{
  "primary_goals": [
    {
      "goal": "Career Growth",
      "deadline": null,
      "description": "...",
      "priority": "HIGH"
    },
    {
       "goal": "Get Fit",
       "deadline": null,
       "description": "...",
       "priority": "HIGH"
    }
  ],
  "active_projects": ["Project Name 1", "Project Name 2"],
  "skill_gaps": ["Skill 1", "Skill 2"],
  "recent_focus_areas": ["Area 1", "Area 2"],
  "critical_deadlines": [
    { "event": "...", "date": "..." }
  ],
  "identity_context": "Brief summary of who the user is and what they value based on their files."
}

Focus on accuracy. If information isn't found, use null or an empty list.
`, vaultContent)

	text, err := m.gen.Generate(ctx, m.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyzing vault: %w", err)
	}

	raw := gemini.ExtractJSON(text)

	var contextMap ContextMap
	if err := json.Unmarshal([]byte(raw), &contextMap); err != nil {
		return nil, fmt.Errorf("parsing context map: %w", err)
	}

	pretty, err := json.MarshalIndent(&contextMap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding context map: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.mapPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(m.mapPath, pretty, 0o644); err != nil {
		return nil, fmt.Errorf("saving context map: %w", err)
	}

	m.mu.Lock()
	m.cached = string(pretty)
	m.mu.Unlock()

	m.logger.Info("Context map generated and saved", zap.String("path", m.mapPath))
	m.store.LogAudit(ctx, "context_refresh", "Regenerated context_map.json from vault analysis.")

	return &contextMap, nil
}
