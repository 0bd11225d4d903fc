package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"critbot/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a config rooted in a temp dir.
func execute(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()

	scanSite, scanCopy = "", false
	critiqueQuestion, critiqueGenerate, critiqueCopy, critiquePlain = "", false, false, false
	critiqueProvider, critiqueModel, critiqueAPIKey = "", "", ""
	verbose = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	cfgYAML := fmt.Sprintf("data_dir: %s\nstorage:\n  path: %s\n%s",
		dir, filepath.Join(dir, "prefs.db"), extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0644))
	return dir
}

func TestScan_PrintsOnePromptPerAnswer(t *testing.T) {
	dir := writeConfig(t, "")

	out, err := execute(t, dir, "", "scan", "testdata/chatgpt.html")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "=== answer "), out)
	assert.Contains(t, out, "=== answer 1/2 (chatgpt")
	assert.Contains(t, out, "통근 시간을 줄여")
	assert.Contains(t, out, "비동기 문서화")
	assert.NotContains(t, out, "짧은 답변입니다")
	assert.Contains(t, out, "하이브리드 근무는 어떤가요?")
}

func TestScan_UnknownSiteNeedsFlag(t *testing.T) {
	dir := writeConfig(t, "")
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte("<html><body><p>hi</p></body></html>"), 0644))

	_, err := execute(t, dir, "", "scan", page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--site")

	out, err := execute(t, dir, "", "scan", page, "--site", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "No answers found.")
}

func TestCritique_PromptFromStdin(t *testing.T) {
	dir := writeConfig(t, "")

	out, err := execute(t, dir, "답변 본문입니다.", "critique", "--question", "질문입니다")
	require.NoError(t, err)
	assert.Contains(t, out, "원래 사용자 질문:\n\"\"\"\n질문입니다\n\"\"\"")
	assert.Contains(t, out, "답변 본문입니다.")
}

func TestCritique_EmptyInput(t *testing.T) {
	dir := writeConfig(t, "")
	_, err := execute(t, dir, "   \n", "critique")
	require.Error(t, err)
}

func TestCritique_GenerateUsesStoredProvider(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"1) 요약\n2) 취약점\n3) 반례\n4) 검증"}}]}`)
	}))
	defer ts.Close()

	dir := writeConfig(t, fmt.Sprintf("providers:\n  openai:\n    base_url: %s\n", ts.URL))
	_, err := execute(t, dir, "", "settings", "set", "apiKey", "sk-stored")
	require.NoError(t, err)

	out, err := execute(t, dir, "답변", "critique", "--generate", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-stored", gotAuth)
	assert.Contains(t, out, "2) 취약점")
}

func TestCritique_GenerateWithoutKeyFails(t *testing.T) {
	dir := writeConfig(t, "")
	_, err := execute(t, dir, "답변", "critique", "--generate")
	require.Error(t, err)
}

func TestSettingsSetAndGet(t *testing.T) {
	dir := writeConfig(t, "")

	_, err := execute(t, dir, "", "settings", "set", "popupDelay", "0")
	require.NoError(t, err)
	_, err = execute(t, dir, "", "settings", "set", "provider", "Claude")
	require.Error(t, err)
	_, err = execute(t, dir, "", "settings", "set", "provider", "anthropic")
	require.NoError(t, err)
	_, err = execute(t, dir, "", "settings", "set", "apiKey", "sk-abcdef9876")
	require.NoError(t, err)

	out, err := execute(t, dir, "", "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "popupDelay=0\n")
	assert.Contains(t, out, `provider="anthropic"`)
	assert.Contains(t, out, `apiKey="****9876"`)
	assert.NotContains(t, out, "sk-abcdef9876")
}

func TestParseSetting(t *testing.T) {
	tests := []struct {
		key, value string
		want       any
		wantErr    bool
	}{
		{settings.KeyEnabled, "false", false, false},
		{settings.KeyEnabled, "maybe", nil, true},
		{settings.KeyPopupDelay, "5", 5, false},
		{settings.KeyPopupDelay, "-1", nil, true},
		{settings.KeyProvider, "GEMINI", "gemini", false},
		{settings.KeyModel, " gpt-4o ", "gpt-4o", false},
		{settings.KeyCategories, "factual, practical", settings.Categories{Factual: true, Practical: true}, false},
		{settings.KeyCategories, "none", settings.Categories{}, false},
		{settings.KeyCategories, "moral", nil, true},
		{settings.KeyTotalPrompts, "3", nil, true},
		{"colour", "blue", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseSetting(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToggleAndStats(t *testing.T) {
	dir := writeConfig(t, "")

	out, err := execute(t, dir, "", "toggle")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	out, err = execute(t, dir, "", "toggle", "on")
	require.NoError(t, err)
	assert.Contains(t, out, "enabled")

	out, err = execute(t, dir, "", "settings", "get", "enabled")
	require.NoError(t, err)
	assert.Equal(t, "enabled=true\n", out)

	out, err = execute(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Prompts shown:   0")

	out, err = execute(t, dir, "", "stats", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics reset.")
}

func TestAsMarkdownLines(t *testing.T) {
	got := asMarkdownLines("1) a\n2) b\n\n3) c")
	assert.Equal(t, "1) a  \n2) b  \n\n3) c  ", got)
}
