package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslator_T(t *testing.T) {
	tr, err := New("ro")
	require.NoError(t, err)

	ro := tr.T(context.Background(), "error.no_active_shift")
	en := tr.T(WithLocale(context.Background(), "en"), "error.no_active_shift")

	assert.Equal(t, "Nu ai o tură activă.", ro)
	assert.Equal(t, "You have no active shift.", en)
}

func TestTranslator_T_TemplateAndUnknown(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "You exceeded the 120 minute overtime limit.", tr.T(ctx, "shift.overtime_warning", map[string]any{"Max": 120}))
	assert.Equal(t, "no.such.message", tr.T(ctx, "no.such.message"))
}

func TestTranslator_Match(t *testing.T) {
	tr, err := New("ro")
	require.NoError(t, err)

	assert.Equal(t, "en", tr.Match("en-US,en;q=0.9"))
	assert.Equal(t, "ro", tr.Match("ro-RO"))
	assert.Equal(t, "ro", tr.Match(""))
	assert.Equal(t, "ro", tr.Match("ja"))
}

func TestTranslator_Middleware(t *testing.T) {
	tr, err := New("ro")
	require.NoError(t, err)

	var got string
	h := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = tr.LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB")

	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "en", got)
}

func TestNew_InvalidLocale(t *testing.T) {
	_, err := New("not a locale!")

	assert.Error(t, err)
}
