package image

import (
	"fmt"
	"strings"
)

// BuildInstruction converts a request into the natural language instruction
// sent alongside the images. Image references follow the order produced by
// inputImages.
func BuildInstruction(req GenerateRequest) string {
	var parts []string
	prompt := strings.TrimSpace(req.Prompt)

	switch req.Mode {
	case WorkflowModeRetouch:
		parts = append(parts, "Retouch the portrait in the image.")
		if prompt == "" {
			prompt = "even out skin tone and remove small blemishes"
		}
		parts = append(parts, "Retouch direction: "+prompt+".")
		parts = append(parts, "Keep pores, hair strands, and facial structure natural.")
	case WorkflowModePose:
		parts = append(parts, "Change the pose of the person in the image.")
		if prompt != "" {
			parts = append(parts, "Target pose: "+prompt+".")
		}
		parts = append(parts, "Keep the face, clothing, and background consistent with the original.")
	case WorkflowModeHairstyle:
		parts = append(parts, "Restyle the hair of the person in the image.")
		if prompt != "" {
			parts = append(parts, "New hairstyle: "+prompt+".")
		}
		parts = append(parts, "Do not alter the face, skin, or background.")
	case WorkflowModeFaceSwap:
		parts = append(parts, "Take the face from the first image and place it onto the person in the second image.")
		parts = append(parts, "Match skin tone, lighting, and head angle of the second image so the result looks like a single photograph.")
		if prompt != "" {
			parts = append(parts, "Additional direction: "+prompt+".")
		}
	case WorkflowModeHeadshot:
		n := len(req.Images)
		parts = append(parts, fmt.Sprintf("The %d images are reference photos of the same person.", n))
		parts = append(parts, "Create a professional studio headshot of that person: shoulders up, soft key light, neutral backdrop, business attire.")
		parts = append(parts, "Preserve their identity and facial proportions exactly.")
		if prompt != "" {
			parts = append(parts, "Additional direction: "+prompt+".")
		}
	case WorkflowModePassport:
		parts = append(parts, "Convert the portrait into a passport photo.")
		parts = append(parts, "Plain white background, head centred and facing forward, neutral expression, even lighting without shadows, no accessories covering the face.")
		if prompt != "" {
			parts = append(parts, "Document requirements: "+prompt+".")
		}
	default:
		if prompt != "" {
			parts = append(parts, prompt)
		}
	}

	parts = append(parts, "Return a photorealistic image, sharp and free of artefacts.")
	if locale := strings.TrimSpace(req.Locale); locale != "" && !strings.HasPrefix(strings.ToLower(locale), "en") {
		parts = append(parts, fmt.Sprintf("Any text in your reply should use the %s locale.", locale))
	}
	return strings.Join(parts, " ")
}
