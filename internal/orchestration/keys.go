package orchestration

import (
	"strings"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// KeyResolver maps a key class to the upstream credential it uses.
type KeyResolver struct {
	keys map[models.KeyClass]string
}

// NewKeyResolver creates a resolver from configured credentials.
func NewKeyResolver(cfg config.KeysConfig) *KeyResolver {
	return &KeyResolver{
		keys: map[models.KeyClass]string{
			models.KeyClassWorkflow:   cfg.Workflow,
			models.KeyClassAPI:        cfg.API,
			models.KeyClassChat:       cfg.Chat,
			models.KeyClassCompletion: cfg.Completion,
		},
	}
}

// Resolve returns the credential for class. Unknown classes and classes with
// no credential silently fall back to the workflow credential.
func (r *KeyResolver) Resolve(class models.KeyClass) string {
	if key := r.keys[class]; key != "" {
		return key
	}
	return r.keys[models.KeyClassWorkflow]
}

// PreviewKey masks a credential for display: the first and last four
// characters survive. Keys too short to mask safely are fully hidden.
func PreviewKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "not set"
	}
	runes := []rune(key)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}
