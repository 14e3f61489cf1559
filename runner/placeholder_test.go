package runner

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholdersApply(t *testing.T) {
	existing := Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: "old"}
	tests := []struct {
		name   string
		mode   Mode
		values map[string]string
		want   Placeholders
	}{
		{
			name:   "merge overwrites and keeps",
			mode:   ModeMerge,
			values: map[string]string{KakaoNativeAppKey: "new"},
			want:   Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: "new"},
		},
		{
			name:   "merge with blank value",
			mode:   ModeMerge,
			values: map[string]string{KakaoNativeAppKey: ""},
			want:   Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: ""},
		},
		{
			name:   "merge adds",
			mode:   ModeMerge,
			values: map[string]string{"MAPS_API_KEY": "m"},
			want:   Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: "old", "MAPS_API_KEY": "m"},
		},
		{
			name:   "empty mode merges",
			mode:   "",
			values: map[string]string{KakaoNativeAppKey: "new"},
			want:   Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: "new"},
		},
		{
			name:   "replace",
			mode:   ModeReplace,
			values: map[string]string{KakaoNativeAppKey: "new"},
			want:   Placeholders{KakaoNativeAppKey: "new"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := existing.Apply(tt.mode, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	// the receiver is never mutated
	assert.Equal(t, Placeholders{"APP_LABEL": "Offpeak", KakaoNativeAppKey: "old"}, existing)
}

func TestPlaceholdersApplyNilStore(t *testing.T) {
	var p Placeholders
	got, err := p.Apply(ModeMerge, map[string]string{"A": "1"})
	require.NoError(t, err)
	assert.Equal(t, Placeholders{"A": "1"}, got)
}

func TestPlaceholdersApplyUnknownMode(t *testing.T) {
	_, err := Placeholders{}.Apply("append", map[string]string{"A": "1"})
	require.Error(t, err)
}

func TestPlaceholderStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "placeholders.env")

	p, err := readPlaceholders(path)
	require.NoError(t, err)
	assert.Empty(t, p)

	want := Placeholders{
		KakaoNativeAppKey: "abc123",
		"APP_LABEL":       "Offpeak Mobile",
		"EMPTY":           "",
		"WITH_EQUALS":     "a=b",
		"LEADING_ZEROS":   "0012345",
		"SIGNED":          "+5",
		"QUOTED":          `say "hi"`,
	}
	require.NoError(t, writePlaceholders(path, want))
	got, err := readPlaceholders(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWritePlaceholdersQuotesEveryValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "placeholders.env")
	require.NoError(t, writePlaceholders(path, Placeholders{
		KakaoNativeAppKey: "0012345",
		"PORT":            "8080",
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "KAKAO_NATIVE_APP_KEY=\"0012345\"\nPORT=\"8080\"\n", string(data))
}

func TestDoubleQuoteEscape(t *testing.T) {
	assert.Equal(t, `a\\b\"c\nd\$e`, doubleQuoteEscape("a\\b\"c\nd$e"))
}

func TestReadPlaceholdersFromDirectory(t *testing.T) {
	_, err := readPlaceholders(t.TempDir())
	require.Error(t, err)
}

func TestPrintPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPlaceholders(&buf, Placeholders{"B": "two", "A": "one"}))
	assert.Equal(t, "A=\"one\"\nB=\"two\"\n", buf.String())

	buf.Reset()
	require.NoError(t, printPlaceholders(&buf, Placeholders{}))
	assert.Empty(t, buf.String())
}
