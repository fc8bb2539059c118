package studio

import (
	"studio/internal/domain"
	"studio/internal/providers/image"
	"studio/internal/workflow"
)

// PanelSpec is the static policy of one panel.
type PanelSpec struct {
	Mode                 image.WorkflowMode
	Constraint           workflow.Constraint
	ConsumeOnSuccess     bool
	RequiresCurrentImage bool
	RequiresPrompt       bool
	Quantity             int
}

// PanelSpecs returns the panel table in display order.
func PanelSpecs(headshotCandidates int) []PanelSpec {
	if headshotCandidates <= 0 {
		headshotCandidates = 4
	}
	return []PanelSpec{
		{Mode: image.WorkflowModeRetouch, Constraint: workflow.NoUploads, RequiresCurrentImage: true, Quantity: 1},
		{Mode: image.WorkflowModePose, Constraint: workflow.NoUploads, RequiresCurrentImage: true, RequiresPrompt: true, Quantity: 1},
		{Mode: image.WorkflowModeFaceSwap, Constraint: workflow.FaceSwapConstraint, RequiresCurrentImage: true, Quantity: 1},
		{Mode: image.WorkflowModeHairstyle, Constraint: workflow.NoUploads, RequiresCurrentImage: true, RequiresPrompt: true, Quantity: 1},
		{Mode: image.WorkflowModeHeadshot, Constraint: workflow.HeadshotConstraint, ConsumeOnSuccess: true, Quantity: headshotCandidates},
		{Mode: image.WorkflowModePassport, Constraint: workflow.NoUploads, RequiresCurrentImage: true, Quantity: 1},
	}
}

// precondition returns the gate hook for what the panel needs beyond uploads
// and the current image, or nil when uploads alone decide.
func (p PanelSpec) precondition() func(prompt string) error {
	if !p.RequiresPrompt {
		return nil
	}
	return func(prompt string) error {
		if prompt == "" {
			return domain.ErrPromptRequired
		}
		return nil
	}
}
