package watcher

import (
	"fmt"
	"net/url"
	"strings"

	"critbot/internal/config"
)

// Site identifies an LLM web UI.
type Site string

const (
	SiteChatGPT Site = "chatgpt"
	SiteClaude  Site = "claude"
	SiteGemini  Site = "gemini"
	SiteOther   Site = "other"
)

// Profile is the selector table for one site. The lists are tried in order.
type Profile struct {
	Site              Site
	Hosts             []string
	ResponseSelectors []string
	QuestionSelectors []string
	InputSelectors    []string
}

var defaultInputSelectors = []string{
	"#prompt-textarea",
	"textarea",
	`div[contenteditable="true"]`,
}

func builtinProfiles() map[Site]Profile {
	return map[Site]Profile{
		SiteChatGPT: {
			Site:  SiteChatGPT,
			Hosts: []string{"chat.openai.com", "chatgpt.com"},
			ResponseSelectors: []string{
				`[data-message-author-role="assistant"]`,
				".markdown",
				".prose",
				`[data-testid="conversation-turn-2"]`,
			},
			QuestionSelectors: []string{`[data-message-author-role="user"]`},
			InputSelectors:    defaultInputSelectors,
		},
		SiteClaude: {
			Site:  SiteClaude,
			Hosts: []string{"claude.ai"},
			ResponseSelectors: []string{
				".claude-response",
				`[data-testid="message"]`,
				".prose",
			},
			QuestionSelectors: []string{`[data-testid="user-message"]`, ".font-user-message"},
			InputSelectors:    defaultInputSelectors,
		},
		SiteGemini: {
			Site:  SiteGemini,
			Hosts: []string{"bard.google.com", "gemini.google.com"},
			ResponseSelectors: []string{
				".response-container",
				`[data-testid="response"]`,
				".conversation-turn",
			},
			QuestionSelectors: []string{"user-query", ".query-text"},
			InputSelectors:    defaultInputSelectors,
		},
		SiteOther: {Site: SiteOther},
	}
}

// Profiles is the site table in effect.
type Profiles map[Site]Profile

// NewProfiles returns the built-in site table with overrides applied. Empty
// override lists keep the built-in value.
func NewProfiles(overrides map[string]config.SiteConfig) Profiles {
	profiles := Profiles(builtinProfiles())
	for name, o := range overrides {
		site, err := ParseSite(name)
		if err != nil {
			continue
		}
		p := profiles[site]
		if len(o.Hosts) > 0 {
			p.Hosts = o.Hosts
		}
		if len(o.ResponseSelectors) > 0 {
			p.ResponseSelectors = o.ResponseSelectors
		}
		if len(o.QuestionSelectors) > 0 {
			p.QuestionSelectors = o.QuestionSelectors
		}
		if len(o.InputSelectors) > 0 {
			p.InputSelectors = o.InputSelectors
		}
		profiles[site] = p
	}
	return profiles
}

// ParseSite accepts a site name; "bard" is an alias for gemini.
func ParseSite(name string) (Site, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chatgpt", "openai":
		return SiteChatGPT, nil
	case "claude":
		return SiteClaude, nil
	case "gemini", "bard":
		return SiteGemini, nil
	case "other", "":
		return SiteOther, nil
	}
	return "", fmt.Errorf("unknown site %q", name)
}

// ForHost returns the profile whose hosts include host (or a parent of it),
// or the SiteOther profile.
func (ps Profiles) ForHost(host string) Profile {
	host = strings.ToLower(host)
	for _, site := range []Site{SiteChatGPT, SiteClaude, SiteGemini} {
		for _, h := range ps[site].Hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return ps[site]
			}
		}
	}
	return ps[SiteOther]
}

// ForURL is ForHost on the URL's host. Unparseable URLs map to SiteOther.
func (ps Profiles) ForURL(raw string) Profile {
	u, err := url.Parse(raw)
	if err != nil {
		return ps[SiteOther]
	}
	return ps.ForHost(u.Hostname())
}

// IsLLMURL reports whether raw belongs to a known LLM site.
func (ps Profiles) IsLLMURL(raw string) bool {
	return ps.ForURL(raw).Site != SiteOther
}
