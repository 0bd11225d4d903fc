package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"critbot/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_TruncatesLongResponse(t *testing.T) {
	text := strings.Repeat("가", 6000) + strings.Repeat("나", 500)
	got := Build(text, "")

	assert.Contains(t, got, strings.Repeat("가", 6000)+TruncationMarker)
	assert.NotContains(t, got, "나")
}

func TestBuild_ShortResponseUntouched(t *testing.T) {
	text := "  " + strings.Repeat("a", 6000) + "\n"
	got := Build(text, "")
	assert.Contains(t, got, "\"\"\"\n"+strings.Repeat("a", 6000)+"\n\"\"\"")
	assert.NotContains(t, got, TruncationMarker)
}

func TestBuild_QuestionBlock(t *testing.T) {
	got := Build("answer", "")
	assert.Contains(t, got, "원래 사용자 질문:\n\"\"\"\n"+NoQuestion+"\n\"\"\"")

	got = Build("answer", "  why is the sky blue?  ")
	assert.Contains(t, got, "\"\"\"\nwhy is the sky blue?\n\"\"\"")

	long := strings.Repeat("q", 2100)
	got = Build("answer", long)
	assert.Contains(t, got, strings.Repeat("q", 2000)+TruncationMarker)
	assert.NotContains(t, got, strings.Repeat("q", 2001))
}

func TestBuild_SensitiveBranching(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sensitive bool
	}{
		{"medical", "이 약은 치료 효과가 있습니다", true},
		{"legal", "계약서를 검토하세요", true},
		{"finance", "주식 투자를 권합니다", true},
		{"plain", "파이썬 리스트 정렬 방법입니다", false},
		{"english", "sort a list in place", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.text, "")
			hasMandatory := strings.Contains(got, mandatoryDisclaimer)
			hasSoft := strings.Contains(got, epistemicCaution)
			require.NotEqual(t, hasMandatory, hasSoft, "clauses are mutually exclusive")
			assert.Equal(t, tt.sensitive, hasMandatory)
		})
	}
}

func TestBuild_SensitiveCheckUsesTruncatedText(t *testing.T) {
	text := strings.Repeat("x", 6000) + " 세금"
	got := Build(text, "")
	assert.Contains(t, got, epistemicCaution)
}

func TestBuild_Deterministic(t *testing.T) {
	assert.Equal(t, Build("같은 답변", "질문"), Build("같은 답변", "질문"))
}

func TestBuild_OutputContract(t *testing.T) {
	got := Build("answer", "")
	for _, section := range []string{
		"1) 핵심 주장 요약(최대 40자)", "2) 치명적 취약점 TOP-3", "3) 반례/엣지 케이스",
		"4) 검증 플랜(데이터/절차/도구)", "5) 대안 가설/접근법", "6) 법적/윤리/실무 리스크",
		"7) 신뢰도 등급(A~F)", "8) 사용 전 체크리스트(불릿)",
	} {
		assert.Contains(t, got, section)
	}
}

func TestBuilder_CustomLimits(t *testing.T) {
	b := NewBuilder(10, 0)
	got := b.Build(strings.Repeat("z", 20), "")
	assert.Contains(t, got, strings.Repeat("z", 10)+TruncationMarker)
	assert.NotContains(t, got, strings.Repeat("z", 11))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab"+TruncationMarker, Truncate("abc", 2))
	assert.Equal(t, "한글"+TruncationMarker, Truncate("한글입니다", 2))
	assert.Equal(t, "", Truncate("", 5))
}

func TestBuild_LogsToPromptCategory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, logging.Initialize(dir, logging.Options{DebugMode: true, Level: "debug"}))
	Build("주식 투자는 분산이 핵심입니다.", "어디에 투자할까요?")
	logging.CloseAll()

	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*_prompt.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sensitive topic detected")
	assert.Contains(t, string(data), "Building prompt")
}
