package shoppinglist

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFRendererWritesDocument(t *testing.T) {
	var buf bytes.Buffer
	r := PDFRenderer{CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	require.NoError(t, r.Render(&buf, []string{"Shopping list", "1 Flour - 300, g"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFRendererHeaderOnly(t *testing.T) {
	pdf, err := PDFRenderer{}.build([]string{"Shopping list"})
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.PageCount())
}

func TestPDFRendererPaginates(t *testing.T) {
	lines := []string{"Shopping list"}
	for i := 1; i <= 120; i++ {
		lines = append(lines, fmt.Sprintf("%d Item%d - %d, g", i, i, i))
	}

	pdf, err := PDFRenderer{}.build(lines)
	require.NoError(t, err)
	assert.Greater(t, pdf.PageCount(), 1)
}

// utf16be mirrors how fpdf writes text shown in a UTF-8 font.
func utf16be(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

func TestPDFRendererKeepsCyrillicByDefault(t *testing.T) {
	lines := RenderLinesWithHeader("Список ингредиентов", Aggregate([]IngredientLine{
		{Name: "Мука", Unit: "г", Amount: 200},
	}))

	pdf, err := PDFRenderer{}.build(lines)
	require.NoError(t, err)
	pdf.SetCompression(false)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	assert.Contains(t, buf.String(), "("+string(utf16be("Список ингредиентов"))+")")
	assert.Contains(t, buf.String(), "("+string(utf16be("1 Мука - 200, г"))+")")
	assert.NotContains(t, buf.String(), "(1 .... - 200, .)")
}

func TestPDFRendererMissingFont(t *testing.T) {
	var buf bytes.Buffer
	r := PDFRenderer{FontPath: filepath.Join(t.TempDir(), "missing.ttf")}

	assert.Error(t, r.Render(&buf, []string{"Список ингредиентов"}))
	assert.Zero(t, buf.Len())
}
