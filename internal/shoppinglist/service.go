package shoppinglist

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"recipehub/pkg/logger"
)

// LineSource returns the flat ingredient lines of every recipe in a user's
// cart, in a stable order.
type LineSource interface {
	CartLines(ctx context.Context, userID string) ([]IngredientLine, error)
}

type List struct {
	Header  string   `json:"header"`
	Entries []Entry  `json:"entries"`
	Lines   []string `json:"lines"`
}

type Service struct {
	Source LineSource
	Header string
	PDF    PDFRenderer
	Log    *logger.Logger
}

func NewService(src LineSource, header string, pdf PDFRenderer, log *logger.Logger) *Service {
	if header == "" {
		header = DefaultHeader
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{Source: src, Header: header, PDF: pdf, Log: log.With("service", "shoppinglist")}
}

func (s *Service) Build(ctx context.Context, userID string) (List, error) {
	lines, err := s.Source.CartLines(ctx, userID)
	if err != nil {
		return List{}, fmt.Errorf("load cart lines: %w", err)
	}
	if err := Validate(lines); err != nil {
		return List{}, fmt.Errorf("validate cart lines: %w", err)
	}
	if names := UnitConflicts(lines); len(names) > 0 {
		s.Log.Warn("ingredients with mixed units summed under first unit",
			"user_id", userID, "ingredients", names)
	}

	entries := Aggregate(lines)
	return List{
		Header:  s.Header,
		Entries: entries,
		Lines:   RenderLinesWithHeader(s.Header, entries),
	}, nil
}

// WritePDF renders the whole document before touching w, so a failure leaves
// w untouched and the caller can still answer with an error status.
func (s *Service) WritePDF(ctx context.Context, w io.Writer, userID string) (List, error) {
	list, err := s.Build(ctx, userID)
	if err != nil {
		return List{}, err
	}
	var buf bytes.Buffer
	if err := s.PDF.Render(&buf, list.Lines); err != nil {
		return List{}, fmt.Errorf("render shopping list: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return List{}, fmt.Errorf("write shopping list: %w", err)
	}
	return list, nil
}
