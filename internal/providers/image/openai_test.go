package image

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

type stubEditor struct {
	calls  int
	prompt string
	n      int
	image  []byte
	resp   openai.ImageResponse
	err    error
}

func (s *stubEditor) CreateEditImage(ctx context.Context, req openai.ImageEditRequest) (openai.ImageResponse, error) {
	s.calls++
	s.prompt = req.Prompt
	s.n = req.N
	if req.Image != nil {
		data, err := io.ReadAll(req.Image)
		if err != nil {
			return openai.ImageResponse{}, err
		}
		s.image = data
	}
	return s.resp, s.err
}

func TestOpenAIGeneratorEditsCurrentImage(t *testing.T) {
	editor := &stubEditor{resp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{
		{B64JSON: base64.StdEncoding.EncodeToString([]byte("edited"))},
	}}}
	gen := newOpenAIGenerator(editor, "", zerolog.Nop())
	cur := Payload{Data: []byte("current"), MIME: "image/jpeg"}

	artifacts, err := gen.Generate(context.Background(), GenerateRequest{Mode: WorkflowModeRetouch, Current: &cur, Prompt: "soft skin"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(artifacts) != 1 || string(artifacts[0].Data) != "edited" {
		t.Fatalf("unexpected artifacts: %#v", artifacts)
	}
	if string(editor.image) != "current" {
		t.Fatalf("uploaded image = %q, want current", editor.image)
	}
	if editor.n != 1 {
		t.Fatalf("n = %d, want 1", editor.n)
	}
}

func TestOpenAIGeneratorRejectsMultiImageModes(t *testing.T) {
	editor := &stubEditor{}
	gen := newOpenAIGenerator(editor, "", zerolog.Nop())
	for _, mode := range []WorkflowMode{WorkflowModeFaceSwap, WorkflowModeHeadshot} {
		_, err := gen.Generate(context.Background(), GenerateRequest{Mode: mode, Images: make([]Payload, 4)})
		if !errors.Is(err, ErrUnsupportedMode) {
			t.Fatalf("%s err = %v, want ErrUnsupportedMode", mode, err)
		}
	}
	if editor.calls != 0 {
		t.Fatalf("editor calls = %d, want 0", editor.calls)
	}
}

func TestOpenAIGeneratorEmptyData(t *testing.T) {
	gen := newOpenAIGenerator(&stubEditor{}, "", zerolog.Nop())
	cur := Payload{Data: []byte("current")}
	if _, err := gen.Generate(context.Background(), GenerateRequest{Mode: WorkflowModePassport, Current: &cur}); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	if _, err := NewOpenAIGenerator("", "", "", zerolog.Nop()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
