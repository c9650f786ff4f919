// Package language decides whether completion is allowed for a document
// language and trigger mode.
package language

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"codesuggest/logger"
	"codesuggest/types"
)

// Switch is the per-language completion setting
type Switch int

const (
	SwitchEnabled Switch = iota
	SwitchDisabled
	SwitchUnsupported
)

func (s Switch) String() string {
	switch s {
	case SwitchEnabled:
		return "enabled"
	case SwitchDisabled:
		return "disabled"
	case SwitchUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ParseSwitch parses a switch name from config
func ParseSwitch(s string) (Switch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enabled", "on", "true":
		return SwitchEnabled, nil
	case "disabled", "off", "false":
		return SwitchDisabled, nil
	case "unsupported":
		return SwitchUnsupported, nil
	default:
		return SwitchEnabled, fmt.Errorf("unknown language switch %q", s)
	}
}

// DefaultAllowed lists the languages completion is offered for out of the box
var DefaultAllowed = []string{
	"vue", "typescript", "javascript", "python", "go", "c", "c++",
	"shell", "bash", "batch", "lua", "java", "php", "ruby",
}

// aliases maps editor filetypes onto the canonical language names
var aliases = map[string]string{
	"cpp":             "c++",
	"cc":              "c++",
	"sh":              "shell",
	"zsh":             "shell",
	"dosbatch":        "batch",
	"bat":             "batch",
	"typescriptreact": "typescript",
	"javascriptreact": "javascript",
	"golang":          "go",
}

// Canonical maps a filetype onto the name used by the policy
func Canonical(filetype string) string {
	ft := strings.ToLower(strings.TrimSpace(filetype))
	if alias, ok := aliases[ft]; ok {
		return alias
	}
	return ft
}

// Policy implements types.Policy. A language outside the allowed list is
// unsupported unless it has an explicit switch.
type Policy struct {
	mu       sync.RWMutex
	enabled  bool
	allowed  []string
	switches map[string]Switch
}

// NewPolicy creates a policy. A nil allowed list means DefaultAllowed.
func NewPolicy(enabled bool, allowed []string, switches map[string]Switch) *Policy {
	if allowed == nil {
		allowed = DefaultAllowed
	}
	p := &Policy{
		enabled:  enabled,
		switches: make(map[string]Switch, len(switches)),
	}
	for _, lang := range allowed {
		p.allowed = append(p.allowed, Canonical(lang))
	}
	for lang, sw := range switches {
		p.switches[Canonical(lang)] = sw
	}
	return p
}

// SetEnabled flips the global switch
func (p *Policy) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// SetSwitch overrides the switch for one language
func (p *Policy) SetSwitch(language string, sw Switch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.switches[Canonical(language)] = sw
}

// SwitchFor returns the effective switch of a language
func (p *Policy) SwitchFor(language string) Switch {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.switchLocked(Canonical(language))
}

func (p *Policy) switchLocked(lang string) Switch {
	if sw, ok := p.switches[lang]; ok {
		return sw
	}
	if slices.Contains(p.allowed, lang) {
		return SwitchEnabled
	}
	return SwitchUnsupported
}

// IsCompletionAllowed reports whether a suggestion may be requested. The global
// switch and Unsupported always win; Disabled only blocks automatic triggers.
func (p *Policy) IsCompletionAllowed(language string, mode types.TriggerMode) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.enabled {
		logger.Debug("completion disabled globally")
		return false
	}

	lang := Canonical(language)
	switch p.switchLocked(lang) {
	case SwitchUnsupported:
		logger.Debug("completion unsupported for %q", lang)
		return false
	case SwitchDisabled:
		if mode != types.TriggerManual {
			logger.Debug("completion disabled for %q", lang)
			return false
		}
	}
	return true
}
