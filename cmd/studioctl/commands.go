package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
)

func newHeadshotCmd(opts *cliOptions) *cobra.Command {
	var inputs []string
	var prompt string
	cmd := &cobra.Command{
		Use:   "headshot",
		Short: "Create studio headshots from 4 to 10 reference photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts, panelRun{mode: image.WorkflowModeHeadshot, inputs: inputs, prompt: prompt})
		},
	}
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Reference photo (repeat 4 to 10 times)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Additional direction")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newFaceSwapCmd(opts *cliOptions) *cobra.Command {
	var current, other, role string
	cmd := &cobra.Command{
		Use:   "faceswap",
		Short: "Swap faces between the current image and another photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts, panelRun{
				mode:    image.WorkflowModeFaceSwap,
				current: current,
				inputs:  []string{other},
				role:    role,
			})
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "Current image")
	cmd.Flags().StringVar(&other, "other", "", "Other image")
	cmd.Flags().StringVar(&role, "role", string(image.RoleCurrentIsTarget), "current_is_target keeps the current body, current_is_source keeps the current face")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("other")
	return cmd
}

func newEditCmd(opts *cliOptions) *cobra.Command {
	var panel, img, preset, prompt string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Retouch, re-pose or restyle the hair of a portrait",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := image.ParseWorkflowMode(panel)
			if !ok {
				return fmt.Errorf("unknown panel %q", panel)
			}
			switch mode {
			case image.WorkflowModeRetouch, image.WorkflowModePose, image.WorkflowModeHairstyle:
			default:
				return fmt.Errorf("edit supports retouch, pose and hairstyle, not %s", mode)
			}
			return runPanel(cmd, opts, panelRun{mode: mode, current: img, preset: preset, prompt: prompt})
		},
	}
	cmd.Flags().StringVar(&panel, "panel", string(image.WorkflowModeRetouch), "retouch, pose or hairstyle")
	cmd.Flags().StringVar(&img, "image", "", "Current image")
	cmd.Flags().StringVar(&preset, "preset", "", "Preset id (see studioctl presets)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Free text direction")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newPassportCmd(opts *cliOptions) *cobra.Command {
	var img, preset string
	cmd := &cobra.Command{
		Use:   "passport",
		Short: "Turn a portrait into a passport photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts, panelRun{mode: image.WorkflowModePassport, current: img, preset: preset})
		},
	}
	cmd.Flags().StringVar(&img, "image", "", "Current image")
	cmd.Flags().StringVar(&preset, "preset", "", "Document preset id")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	var panel, lang string
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List prompt presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode image.WorkflowMode
			if panel != "" {
				m, ok := image.ParseWorkflowMode(panel)
				if !ok {
					return fmt.Errorf("unknown panel %q", panel)
				}
				mode = m
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PANEL\tID\tLABEL")
			for _, p := range domain.Presets(mode) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Mode, p.ID, p.Label(lang))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&panel, "panel", "", "Only list presets of this panel")
	cmd.Flags().StringVar(&lang, "lang", "en", "Label language (en or id)")
	return cmd
}

func newSuggestCmd(opts *cliOptions) *cobra.Command {
	var panel, lang string
	cmd := &cobra.Command{
		Use:   "suggest [direction]",
		Short: "Rewrite a direction for a panel and propose alternatives",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := image.ParseWorkflowMode(panel)
			if !ok {
				return fmt.Errorf("unknown panel %q", panel)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			enhancer, err := buildEnhancer(ctx, cfg, infra.NewCLILogger(opts.verbose))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, opts.timeout)
			defer cancel()
			res, err := enhancer.Enhance(ctx, prompt.EnhanceRequest{Mode: mode, Prompt: strings.Join(args, " "), Locale: lang})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Prompt)
			for _, idea := range res.Ideas {
				fmt.Fprintf(out, "  - %s\n", idea)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&panel, "panel", string(image.WorkflowModeRetouch), "Panel the direction is for")
	cmd.Flags().StringVar(&lang, "lang", "en", "Language of the suggestions (en or id)")
	return cmd
}
