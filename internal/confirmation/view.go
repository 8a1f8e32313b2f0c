package confirmation

import (
	"errors"
	"sync"
)

// ErrExporting is returned when an export is requested while another one is
// still capturing the card.
var ErrExporting = errors.New("an export is already in progress")

// Action is a user-facing operation on a displayed card.
type Action string

const (
	ActionPDF   Action = "pdf"
	ActionJPEG  Action = "jpeg"
	ActionShare Action = "share"
)

// View is a displayed card. Exports are mutually exclusive and hide the
// actions while they run.
type View struct {
	card      *Card
	shareBase string

	mu        sync.Mutex
	exporting bool
}

// NewView wraps a resolved card.
func NewView(card *Card, shareBase string) *View {
	return &View{card: card, shareBase: shareBase}
}

// Card returns the underlying card.
func (v *View) Card() *Card {
	return v.card
}

// Actions lists the available actions; none while exporting.
func (v *View) Actions() []Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.exporting {
		return []Action{}
	}
	return []Action{ActionPDF, ActionJPEG, ActionShare}
}

// Exporting reports whether a capture is running.
func (v *View) Exporting() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.exporting
}

func (v *View) capture(render func(*Card) ([]byte, error)) ([]byte, error) {
	v.mu.Lock()
	if v.exporting {
		v.mu.Unlock()
		return nil, ErrExporting
	}
	v.exporting = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.exporting = false
		v.mu.Unlock()
	}()
	return render(v.card)
}

// ExportPDF renders the card as a PDF document.
func (v *View) ExportPDF() ([]byte, error) {
	return v.capture(RenderPDF)
}

// ExportJPEG renders the card as a JPEG image.
func (v *View) ExportJPEG() ([]byte, error) {
	return v.capture(RenderJPEG)
}

// ShareURL returns the messaging deep link for the card.
func (v *View) ShareURL() string {
	return ShareURL(v.shareBase, v.card)
}
