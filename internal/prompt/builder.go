// Package prompt builds the adversarial critique prompt for a detected answer.
package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"critbot/internal/logging"
)

// Default input limits, in characters.
const (
	DefaultMaxResponseChars = 6000
	DefaultMaxQuestionChars = 2000
)

// TruncationMarker is appended to any input cut to its limit.
const TruncationMarker = "\n... (중략)"

// NoQuestion is shown when no user question could be matched.
const NoQuestion = "(없음)"

var sensitivePattern = regexp.MustCompile(`(?i)의학|의료|건강|진단|치료|법률|법적|소송|계약|투자|주식|코인|금융|재무|부동산|세금`)

const (
	mandatoryDisclaimer = "- 민감 영역(의료/법률/투자 등) 관련 주장이 포함되어 있으므로, 관련 전문가 검토 필요성과 잠재적 위험(오독, 규제 위반, 손실 가능성)을 반드시 경고하세요."
	epistemicCaution    = "- 민감 영역이 명확히 드러나지 않더라도, 과도한 확신 표현은 피하고 검증 가능성/한계를 분명히 하세요."
)

const header = `당신은 비판 전담 LLM(Adversarial Critic)입니다. 아래의 LLM 답변에 대해 무조건적인 동의 없이, 체계적으로 딴지를 걸며 허점과 리스크를 집요하게 지적하세요. 공손함보다 정확성과 회의적 태도를 우선합니다.

요구사항:
- 절대 칭찬으로 시작하지 말 것. 긍정은 금지. 곧바로 핵심 취약점을 콕 집어 비판할 것.
- 확실하지 않은 부분은 "불확실"로 명시하고, 추가 확인이 필요한 근거/데이터를 요구할 것.
- 숨은 가정, 표본 편향, 누락된 변수, 인과-상관 혼동, 최신성 결여, 과도한 일반화, 환원주의, 윤리/법적 리스크를 찾을 것.
- 반례와 엣지 케이스를 제시하고, 실패 시나리오와 2차 효과를 구체적으로 설명할 것.
- 검증 계획(어떻게 사실/수치를 확인할지)과 대안 가설을 제시할 것.
- 최종적으로 신뢰도 등급(A~F)과 "사용 전 반드시 확인할 체크리스트"를 제공할 것.
`

const outputContract = `
출력 형식(간결하지만 구체적으로):
1) 핵심 주장 요약(최대 40자)
2) 치명적 취약점 TOP-3
3) 반례/엣지 케이스
4) 검증 플랜(데이터/절차/도구)
5) 대안 가설/접근법
6) 법적/윤리/실무 리스크
7) 신뢰도 등급(A~F)
8) 사용 전 체크리스트(불릿)
`

// Builder renders critique prompts. The zero value uses the default limits.
type Builder struct {
	MaxResponseChars int
	MaxQuestionChars int
}

// NewBuilder returns a Builder with the given limits; non-positive values
// select the defaults.
func NewBuilder(maxResponse, maxQuestion int) *Builder {
	return &Builder{MaxResponseChars: maxResponse, MaxQuestionChars: maxQuestion}
}

// Build renders the prompt with the default limits.
func Build(response, question string) string {
	return (&Builder{}).Build(response, question)
}

// Build renders the critique prompt for response and the (possibly empty)
// question that produced it. The output depends only on its inputs.
func (b *Builder) Build(response, question string) string {
	maxResp := b.MaxResponseChars
	if maxResp <= 0 {
		maxResp = DefaultMaxResponseChars
	}
	maxQ := b.MaxQuestionChars
	if maxQ <= 0 {
		maxQ = DefaultMaxQuestionChars
	}

	answer := Truncate(strings.TrimSpace(response), maxResp)
	q := Truncate(strings.TrimSpace(question), maxQ)
	if q == "" {
		q = NoQuestion
	}

	clause := epistemicCaution
	if IsSensitive(answer) {
		clause = mandatoryDisclaimer
		logging.Prompt("Sensitive topic detected, requiring disclaimer")
	}
	logging.PromptDebug("Building prompt: answer %d/%d chars, question %d/%d chars",
		utf8.RuneCountInString(response), maxResp, utf8.RuneCountInString(question), maxQ)

	var sb strings.Builder
	sb.Grow(len(header) + len(outputContract) + len(answer) + len(q) + 512)
	sb.WriteString(header)
	sb.WriteString(clause)
	sb.WriteString("\n")
	sb.WriteString(outputContract)
	sb.WriteString("\n원래 사용자 질문:\n\"\"\"\n")
	sb.WriteString(q)
	sb.WriteString("\n\"\"\"\n\n비판 대상 LLM 답변:\n\"\"\"\n")
	sb.WriteString(answer)
	sb.WriteString("\n\"\"\"")
	return sb.String()
}

// IsSensitive reports whether text mentions a medical, legal, or financial topic.
func IsSensitive(text string) bool {
	return sensitivePattern.MatchString(text)
}

// Truncate cuts s to max characters and appends TruncationMarker when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for n := 0; n < max; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i] + TruncationMarker
}
