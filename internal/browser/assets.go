package browser

import _ "embed"

var (
	//go:embed assets/observer.js
	observerJS string

	//go:embed assets/popup.js
	popupJS string

	//go:embed assets/popup.css
	popupCSS string
)

const (
	mutationBinding = "critbotMutations"
	popupBinding    = "critbotPopupEvent"
)
