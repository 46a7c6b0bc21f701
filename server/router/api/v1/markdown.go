package v1

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownService renders model output to HTML. Raw HTML in the source is not passed through.
type MarkdownService struct {
	md goldmark.Markdown
}

func NewMarkdownService() *MarkdownService {
	return &MarkdownService{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (s *MarkdownService) RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return buf.String(), nil
}
