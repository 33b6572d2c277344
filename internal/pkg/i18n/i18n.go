package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// Translator resolves message IDs against the embedded locale files.
type Translator struct {
	bundle        *i18n.Bundle
	defaultLocale string
	supported     []language.Tag
	matcher       language.Matcher
}

// New loads all locale files. defaultLocale is used when a request carries no
// usable Accept-Language.
func New(defaultLocale string) (*Translator, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("i18n: invalid default locale %q: %w", defaultLocale, err)
	}

	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
	}

	// the default goes first so it wins when nothing matches
	tags := []language.Tag{def}
	for _, t := range bundle.LanguageTags() {
		if t != def {
			tags = append(tags, t)
		}
	}

	return &Translator{
		bundle:        bundle,
		defaultLocale: def.String(),
		supported:     tags,
		matcher:       language.NewMatcher(tags),
	}, nil
}

// WithLocale returns a new context carrying the given locale string (e.g. "ro", "en").
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// LocaleFromContext extracts the locale from the context, or the default.
func (t *Translator) LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return t.defaultLocale
}

// T translates a message ID using the locale from the context. Unknown IDs
// come back unchanged.
func (t *Translator) T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	l := i18n.NewLocalizer(t.bundle, t.LocaleFromContext(ctx), t.defaultLocale)

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}

	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}

// Match picks the supported locale closest to an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLocale
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.defaultLocale
	}
	base, _ := t.supported[idx].Base()
	return base.String()
}

// Middleware stores the request's preferred locale in its context.
func (t *Translator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := t.Match(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
	})
}
