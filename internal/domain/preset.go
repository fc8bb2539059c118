package domain

import (
	"strings"

	"studio/internal/providers/image"
)

// Preset is a canned instruction offered by a static panel.
type Preset struct {
	ID          string             `json:"id"`
	Mode        image.WorkflowMode `json:"mode"`
	Labels      map[string]string  `json:"-"`
	Instruction string             `json:"-"`
}

// Label returns the preset label for a base language, falling back to English.
func (p Preset) Label(lang string) string {
	if l, ok := p.Labels[strings.ToLower(lang)]; ok {
		return l
	}
	return p.Labels["en"]
}

var presets = []Preset{
	{ID: "soft-skin", Mode: image.WorkflowModeRetouch, Labels: map[string]string{"en": "Soft skin", "id": "Kulit halus"},
		Instruction: "smooth skin texture lightly while keeping pores visible"},
	{ID: "remove-blemishes", Mode: image.WorkflowModeRetouch, Labels: map[string]string{"en": "Remove blemishes", "id": "Hapus noda"},
		Instruction: "remove acne, spots and small scars"},
	{ID: "brighten-eyes", Mode: image.WorkflowModeRetouch, Labels: map[string]string{"en": "Brighten eyes", "id": "Cerahkan mata"},
		Instruction: "brighten the eyes and reduce dark circles"},
	{ID: "whiten-teeth", Mode: image.WorkflowModeRetouch, Labels: map[string]string{"en": "Whiten teeth", "id": "Putihkan gigi"},
		Instruction: "whiten the teeth naturally"},

	{ID: "arms-crossed", Mode: image.WorkflowModePose, Labels: map[string]string{"en": "Arms crossed", "id": "Tangan bersilang"},
		Instruction: "standing upright with arms crossed, confident posture"},
	{ID: "hand-on-chin", Mode: image.WorkflowModePose, Labels: map[string]string{"en": "Hand on chin", "id": "Tangan di dagu"},
		Instruction: "seated, one hand resting thoughtfully on the chin"},
	{ID: "over-shoulder", Mode: image.WorkflowModePose, Labels: map[string]string{"en": "Over the shoulder", "id": "Menoleh ke belakang"},
		Instruction: "body turned away, looking back over the shoulder at the camera"},
	{ID: "walking", Mode: image.WorkflowModePose, Labels: map[string]string{"en": "Walking", "id": "Berjalan"},
		Instruction: "mid-stride walking towards the camera"},

	{ID: "bob", Mode: image.WorkflowModeHairstyle, Labels: map[string]string{"en": "Bob", "id": "Bob"},
		Instruction: "chin-length bob with a clean line"},
	{ID: "pixie", Mode: image.WorkflowModeHairstyle, Labels: map[string]string{"en": "Pixie cut", "id": "Potongan pixie"},
		Instruction: "short textured pixie cut"},
	{ID: "long-waves", Mode: image.WorkflowModeHairstyle, Labels: map[string]string{"en": "Long waves", "id": "Gelombang panjang"},
		Instruction: "long loose waves past the shoulders"},
	{ID: "buzz", Mode: image.WorkflowModeHairstyle, Labels: map[string]string{"en": "Buzz cut", "id": "Cepak"},
		Instruction: "even buzz cut"},
	{ID: "braids", Mode: image.WorkflowModeHairstyle, Labels: map[string]string{"en": "Braids", "id": "Kepang"},
		Instruction: "neat box braids"},

	{ID: "id-white", Mode: image.WorkflowModePassport, Labels: map[string]string{"en": "White background", "id": "Latar putih"},
		Instruction: "35x45 mm framing, white background"},
	{ID: "id-red", Mode: image.WorkflowModePassport, Labels: map[string]string{"en": "Red background", "id": "Latar merah"},
		Instruction: "3x4 cm framing, solid red background"},
	{ID: "id-blue", Mode: image.WorkflowModePassport, Labels: map[string]string{"en": "Blue background", "id": "Latar biru"},
		Instruction: "4x6 cm framing, solid blue background"},
}

// Presets returns the catalogue for mode in display order. A zero mode returns everything.
func Presets(mode image.WorkflowMode) []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		if mode == "" || p.Mode == mode {
			out = append(out, p)
		}
	}
	return out
}

// FindPreset looks up a preset of mode by id.
func FindPreset(mode image.WorkflowMode, id string) (Preset, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range presets {
		if p.Mode == mode && p.ID == id {
			return p, nil
		}
	}
	return Preset{}, ErrUnknownPreset
}

// ResolvePrompt combines a preset instruction with free text. Either may be empty.
func ResolvePrompt(mode image.WorkflowMode, presetID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.TrimSpace(presetID) == "" {
		return text, nil
	}
	p, err := FindPreset(mode, presetID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return p.Instruction, nil
	}
	return p.Instruction + "; " + text, nil
}
