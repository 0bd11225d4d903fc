package browser

import (
	"errors"
	"fmt"
	"time"

	"critbot/internal/logging"
	"critbot/internal/presenter"
	"critbot/internal/watcher"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// Labels are the panel captions.
type Labels struct {
	ManualTitle   string `json:"manualTitle"`
	CritiqueTitle string `json:"critiqueTitle"`
	Working       string `json:"working"`
	Copy          string `json:"copy"`
	CopyPrompt    string `json:"copyPrompt"`
	Copied        string `json:"copied"`
	Expand        string `json:"expand"`
	Collapse      string `json:"collapse"`
	Relay         string `json:"relay"`
	Close         string `json:"close"`
}

// DefaultLabels are the Korean captions.
func DefaultLabels() Labels {
	return Labels{
		ManualTitle:   "딴지 LLM 프롬프트 (복사해서 다른 LLM에 붙여넣기)",
		CritiqueTitle: "딴지 LLM 비판",
		Working:       "비판을 생성하는 중...",
		Copy:          "비판 복사",
		CopyPrompt:    "프롬프트 복사",
		Copied:        "복사됨!",
		Expand:        "자세히 보기",
		Collapse:      "접기",
		Relay:         "채팅에 보내기",
		Close:         "닫기",
	}
}

// ErrNoInput is returned by RelayToInput when no chat input matched.
var ErrNoInput = errors.New("no chat input found")

const renderTimeout = 5 * time.Second

// Renderer draws the popup into a page. It implements presenter.Renderer.
type Renderer struct {
	page   *rod.Page
	inputs []string
	labels Labels
}

// NewRenderer creates a renderer for page. page should not carry a context
// that ends before the popup is removed.
func NewRenderer(page *rod.Page, profile watcher.Profile) *Renderer {
	return &Renderer{page: page, inputs: profile.InputSelectors, labels: DefaultLabels()}
}

// Install registers the event binding and the popup script, for the current
// document and every document loaded later. onEvent runs on a rod event
// goroutine.
func (r *Renderer) Install(onEvent func(presenter.UIEvent)) (func(), error) {
	stopBinding, err := r.page.Expose(popupBinding, func(j gson.JSON) (interface{}, error) {
		ev := presenter.UIEvent{
			InstanceID: j.Get("id").Str(),
			Kind:       presenter.EventKind(j.Get("kind").Str()),
		}
		logging.PresenterDebug("UI event %s on %s", ev.Kind, ev.InstanceID)
		onEvent(ev)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", popupBinding, err)
	}
	removeScript, err := r.page.EvalOnNewDocument(popupJS)
	if err != nil {
		_ = stopBinding()
		return nil, fmt.Errorf("install popup script: %w", err)
	}
	if _, err := r.page.Eval(popupJS); err != nil {
		logging.BrowserDebug("popup script not evaluated on current document: %v", err)
	}
	return func() {
		_ = removeScript()
		_ = stopBinding()
	}, nil
}

func (r *Renderer) render(v presenter.View) error {
	_, err := r.page.Timeout(renderTimeout).Eval(
		`(v, copyText, css, labels) => window.__critbotRender(v, copyText, css, labels)`,
		v, v.CopyText(), popupCSS, r.labels)
	return err
}

func (r *Renderer) Show(v presenter.View) error   { return r.render(v) }
func (r *Renderer) Update(v presenter.View) error { return r.render(v) }

func (r *Renderer) Remove(instanceID string) error {
	_, err := r.page.Timeout(renderTimeout).Eval(`(id) => window.__critbotRemove(id)`, instanceID)
	return err
}

// RelayToInput writes text into the first chat input that exists and fires
// an input event on it.
func (r *Renderer) RelayToInput(text string) error {
	res, err := r.page.Timeout(renderTimeout).Eval(`(t, sels) => window.__critbotRelay(t, sels)`, text, r.inputs)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return ErrNoInput
	}
	return nil
}
