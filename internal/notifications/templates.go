package notifications

import (
	"embed"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templateFS embed.FS

const (
	SiteURL = "https://suntvalg.app"
	LogoURL = "https://suntvalg.app/suntvalg-logo.svg"
)

// WelcomeContent is the localized copy of the waitlist welcome email.
type WelcomeContent struct {
	Subject      string   `yaml:"subject"`
	Greeting     string   `yaml:"greeting"`
	WelcomeTitle string   `yaml:"welcome_title"`
	Badge        string   `yaml:"badge"`
	Intro        string   `yaml:"intro"`
	WhatNext     string   `yaml:"what_next"`
	Bullets      []string `yaml:"bullets"`
	CallToAction string   `yaml:"call_to_action"`
	ButtonText   string   `yaml:"button_text"`
	Signoff      string   `yaml:"signoff"`
	Team         string   `yaml:"team"`
	Copyright    string   `yaml:"copyright"`
}

type welcomeTable struct {
	Fallback  string                    `yaml:"fallback"`
	Languages map[string]WelcomeContent `yaml:"languages"`
}

// Templates renders the welcome and reply emails.
type Templates struct {
	welcome     welcomeTable
	welcomeHTML *pongo2.Template
	welcomeText *pongo2.Template
	replyHTML   *pongo2.Template
}

// RenderedEmail is a rendered subject with its alternative bodies.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// LoadTemplates parses the embedded templates and validates that the
// fallback language has welcome copy.
func LoadTemplates() (*Templates, error) {
	raw, err := templateFS.ReadFile("templates/welcome.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read welcome copy: %w", err)
	}

	var table welcomeTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse welcome copy: %w", err)
	}
	if err := table.validate(); err != nil {
		return nil, err
	}

	t := &Templates{welcome: table}
	for name, dst := range map[string]**pongo2.Template{
		"templates/welcome.html": &t.welcomeHTML,
		"templates/welcome.txt":  &t.welcomeText,
		"templates/reply.html":   &t.replyHTML,
	} {
		src, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		tpl, err := pongo2.FromBytes(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		*dst = tpl
	}

	return t, nil
}

func (w welcomeTable) validate() error {
	if w.Fallback == "" {
		return fmt.Errorf("welcome copy has no fallback language")
	}
	fb, ok := w.Languages[w.Fallback]
	if !ok {
		return fmt.Errorf("welcome copy is missing fallback language %q", w.Fallback)
	}
	if strings.TrimSpace(fb.Subject) == "" {
		return fmt.Errorf("welcome copy for fallback language %q has no subject", w.Fallback)
	}
	return nil
}

// WelcomeContent returns the copy for lang, or the fallback copy.
func (t *Templates) WelcomeContent(lang string) (WelcomeContent, string) {
	if c, ok := t.welcome.Languages[lang]; ok {
		return c, lang
	}
	return t.welcome.Languages[t.welcome.Fallback], t.welcome.Fallback
}

// Languages lists the languages with authored welcome copy.
func (t *Templates) Languages() []string {
	out := make([]string, 0, len(t.welcome.Languages))
	for lang := range t.welcome.Languages {
		out = append(out, lang)
	}
	return out
}

// RenderWelcome renders the welcome email for lang.
func (t *Templates) RenderWelcome(lang string) (*RenderedEmail, error) {
	content, _ := t.WelcomeContent(lang)
	ctx := pongo2.Context{"c": content, "site_url": SiteURL}

	html, err := t.welcomeHTML.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render welcome html: %w", err)
	}
	text, err := t.welcomeText.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render welcome text: %w", err)
	}

	return &RenderedEmail{
		Subject: content.Subject,
		HTML:    html,
		Text:    strings.TrimSpace(text),
	}, nil
}

// RenderReply wraps an assistant reply in the branded HTML layout. The reply
// is treated as markdown; raw HTML in it is escaped.
func (t *Templates) RenderReply(subject, reply string) (*RenderedEmail, error) {
	body, err := RenderMarkdown(reply)
	if err != nil {
		return nil, err
	}
	html, err := t.replyHTML.Execute(pongo2.Context{"body": body, "logo_url": LogoURL})
	if err != nil {
		return nil, fmt.Errorf("failed to render reply html: %w", err)
	}
	return &RenderedEmail{
		Subject: ReplySubject(subject),
		HTML:    html,
		Text:    reply,
	}, nil
}

// ReplySubject prefixes subject with "Re: ".
func ReplySubject(subject string) string {
	return "Re: " + subject
}
