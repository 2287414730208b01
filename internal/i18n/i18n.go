package i18n

import (
	"embed"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var builtin embed.FS

// I18n manages internationalization and translations
type I18n struct {
	bundle      *i18n.Bundle
	defaultLang language.Tag
	matcher     language.Matcher
}

// New builds a translator from the embedded locales. Files in overrideDir,
// if it exists, are loaded afterwards and replace built-in messages.
func New(defaultLang, overrideDir string) (*I18n, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := builtin.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(builtin, path.Join("locales", e.Name())); err != nil {
			return nil, fmt.Errorf("load built-in locale %s: %w", e.Name(), err)
		}
	}

	t := &I18n{bundle: bundle, defaultLang: tag}
	if overrideDir != "" {
		if err := t.loadDir(overrideDir); err != nil {
			return nil, err
		}
	}
	t.matcher = language.NewMatcher(t.bundle.LanguageTags())
	return t, nil
}

func (i *I18n) loadDir(dir string) error {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read translations directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}
		if _, err := i.bundle.LoadMessageFile(filepath.Join(dir, file.Name())); err != nil {
			return fmt.Errorf("load %s: %w", file.Name(), err)
		}
	}
	return nil
}

// Translate returns the localized message and whether the id is known
func (i *I18n) Translate(msgID, lang string, data map[string]any) (string, bool) {
	localizer := i18n.NewLocalizer(i.bundle, lang, i.defaultLang.String())
	lc := &i18n.LocalizeConfig{MessageID: msgID}
	if len(data) > 0 {
		lc.TemplateData = data
	}
	msg, err := localizer.Localize(lc)
	if err != nil || msg == "" {
		return msgID, false
	}
	return msg, true
}

// Languages lists the loaded language tags
func (i *I18n) Languages() []string {
	tags := i.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Match picks the best supported language for a raw header value
func (i *I18n) Match(raw string) string {
	if raw == "" {
		return i.defaultLang.String()
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return i.defaultLang.String()
	}
	_, idx, conf := i.matcher.Match(tags...)
	if conf == language.No {
		return i.defaultLang.String()
	}
	base, _ := i.bundle.LanguageTags()[idx].Base()
	return base.String()
}

// LanguageFromRequest resolves X-Lang first, then Accept-Language
func (i *I18n) LanguageFromRequest(r *http.Request) string {
	if v := r.Header.Get(cnst.XLang); v != "" {
		return i.Match(v)
	}
	return i.Match(r.Header.Get("Accept-Language"))
}
