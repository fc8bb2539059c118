package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/image"
	"studio/internal/storage"
	"studio/internal/studio"
)

// Swapped in tests.
var (
	buildGenerator = infra.NewGenerator
	buildEnhancer  = infra.NewEnhancer
)

type cliOptions struct {
	output  string
	verbose bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:   "studioctl",
		Short: "Run portrait studio panels from the command line",
		Long: `studioctl drives the same panel workflow as the API against local files.
The provider is chosen by IMAGE_PROVIDER and the matching API key.

Examples:
  studioctl headshot -i a.jpg -i b.jpg -i c.jpg -i d.jpg -o out/
  studioctl faceswap --current me.jpg --other star.jpg --role current_is_target
  studioctl edit --panel retouch --preset soft-skin --image me.jpg
  studioctl passport --image me.jpg
  studioctl presets --panel hairstyle
  studioctl suggest --panel pose "leaning on a wall"`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", ".", "Directory results are written to")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log workflow transitions to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Generation timeout")

	root.AddCommand(
		newHeadshotCmd(opts),
		newFaceSwapCmd(opts),
		newEditCmd(opts),
		newPassportCmd(opts),
		newPresetsCmd(),
		newSuggestCmd(opts),
	)
	return root
}

// panelRun is one invocation of a panel against local files.
type panelRun struct {
	mode    image.WorkflowMode
	current string
	inputs  []string
	role    string
	preset  string
	prompt  string
}

func runPanel(cmd *cobra.Command, opts *cliOptions, run panelRun) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := infra.NewCLILogger(opts.verbose)

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	gen, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "studioctl-*")
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)
	store, err := storage.NewFileStore(scratch)
	if err != nil {
		return err
	}

	mgr := studio.NewManager(studio.Options{
		Generator:          gen,
		Store:              store,
		HeadshotCandidates: cfg.HeadshotCandidates,
		Logger:             logger,
	})
	defer mgr.Shutdown(context.WithoutCancel(ctx))

	var current *image.Payload
	if run.current != "" {
		p, err := loadImage(run.current)
		if err != nil {
			return err
		}
		current = &p
	}
	s := mgr.Create(current)
	panel, err := s.Panel(run.mode)
	if err != nil {
		return err
	}

	if len(run.inputs) > 0 {
		uploads := make([]image.Payload, 0, len(run.inputs))
		for _, path := range run.inputs {
			p, err := loadImage(path)
			if err != nil {
				return err
			}
			uploads = append(uploads, p)
		}
		if err := panel.Add(ctx, uploads...); err != nil {
			return err
		}
	}
	if run.role != "" {
		role, ok := image.ParseRoleMode(run.role)
		if !ok {
			return fmt.Errorf("unknown role %q (want current_is_source or current_is_target)", run.role)
		}
		if err := panel.SetRole(role); err != nil {
			return err
		}
	}
	if run.preset != "" || run.prompt != "" {
		if err := s.SetPrompt(run.mode, run.preset, run.prompt); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	fmt.Fprintf(cmd.ErrOrStderr(), "Generating %s...\n", run.mode)
	if _, err := s.Generate(ctx, run.mode); err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), opts.output, s, run.mode)
}

func loadImage(path string) (image.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return image.Payload{}, fmt.Errorf("read %s: %w", path, err)
	}
	mime, err := domain.SniffImageMIME(data, mimeFromExt(filepath.Ext(path)))
	if err != nil {
		return image.Payload{}, fmt.Errorf("%s: %w", path, err)
	}
	return image.Payload{Data: data, MIME: mime, Filename: filepath.Base(path)}, nil
}

func mimeFromExt(ext string) string {
	switch ext {
	case ".heic", ".HEIC":
		return "image/heic"
	default:
		return ""
	}
}

// writeResults saves headshot candidates or the new current image.
func writeResults(out io.Writer, dir string, s *studio.Session, mode image.WorkflowMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if mode == image.WorkflowModeHeadshot {
		for _, c := range s.Candidates() {
			path := filepath.Join(dir, fmt.Sprintf("headshot-%d%s", c.Index+1, extensionFor(c.MIME)))
			if err := os.WriteFile(path, c.Data(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintln(out, path)
		}
		return nil
	}
	img, _, err := s.Image()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, string(mode)+extensionFor(img.MIME))
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(out, path)
	return nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
