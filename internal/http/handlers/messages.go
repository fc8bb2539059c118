package handlers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"studio/internal/workflow"
)

// Message keys. Constraint reasons double as keys so they localize directly.
const (
	msgNotFound         = "not found"
	msgUnknownPanel     = "unknown panel"
	msgClosed           = "session closed"
	msgBusy             = "generation in progress"
	msgNotReady         = "edit the panel before generating again"
	msgNoCurrentImage   = "upload a portrait first"
	msgPromptRequired   = "choose a preset or describe the change"
	msgUnknownPreset    = "unknown preset"
	msgUnsupportedMedia = "only JPEG, PNG, WebP or HEIC images are accepted"
	msgPayloadTooLarge  = "upload exceeds the size limit"
	msgBadRequest       = "invalid request"
	msgUnknownRole      = "unknown role"
	msgInternal         = "something went wrong"
	msgNoUploads        = "panel takes no uploads"
	msgEmptyPrompt      = "describe the change to improve"
)

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(key, en, id string) {
		_ = b.SetString(language.English, key, en)
		_ = b.SetString(language.Indonesian, key, id)
	}
	set(msgNotFound, "Not found.", "Tidak ditemukan.")
	set(msgUnknownPanel, "Unknown panel.", "Panel tidak dikenal.")
	set(msgClosed, "This session has ended.", "Sesi ini sudah berakhir.")
	set(msgBusy, "A generation is already in progress.", "Proses pembuatan sedang berjalan.")
	set(msgNotReady, "Change the inputs before generating again.", "Ubah masukan sebelum membuat lagi.")
	set(msgNoCurrentImage, "Upload a portrait first.", "Unggah foto potret terlebih dahulu.")
	set(msgPromptRequired, "Choose a preset or describe the change.", "Pilih preset atau jelaskan perubahannya.")
	set(msgUnknownPreset, "Unknown preset.", "Preset tidak dikenal.")
	set(msgUnsupportedMedia, "Only JPEG, PNG, WebP or HEIC images are accepted.", "Hanya gambar JPEG, PNG, WebP, atau HEIC yang diterima.")
	set(msgPayloadTooLarge, "The upload exceeds the size limit.", "Unggahan melebihi batas ukuran.")
	set(msgBadRequest, "Invalid request.", "Permintaan tidak valid.")
	set(msgUnknownRole, "Unknown role.", "Peran tidak dikenal.")
	set(msgEmptyPrompt, "Describe the change you want first.", "Tuliskan perubahan yang diinginkan terlebih dahulu.")
	set(msgInternal, "Something went wrong. Please try again.", "Terjadi kesalahan. Silakan coba lagi.")

	set(workflow.ReasonBelowMinimum, "Add at least %[2]d photos (you have %[1]d).", "Tambahkan minimal %[2]d foto (saat ini %[1]d).")
	set(workflow.ReasonAboveMaximum, "At most %[3]d photos are allowed (you have %[1]d).", "Maksimal %[3]d foto (saat ini %[1]d).")
	set(workflow.ReasonNoFiles, "Select at least one photo.", "Pilih minimal satu foto.")
	set(msgNoUploads, "This panel works on the current image and takes no uploads.", "Panel ini memakai gambar saat ini dan tidak menerima unggahan.")
	return b
}

// localize renders key for a base language, falling back to English.
func localize(locale, key string, args ...any) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key, args...)
}
