package core

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	hudAtlasSize = 512
	glyphPadding = 2
	firstGlyph   = ' '
	lastGlyph    = '~'
)

// TextVertex matches the text pipeline's vertex buffer layout.
type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

type TextItem struct {
	Text     string
	Position [2]float32 // pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UV      [4]float32      // u0, v0, u1, v1
	Rect    image.Rectangle // relative to the pen position on the baseline
	Advance float32
}

// TextRenderer holds an R8 glyph atlas for printable ASCII and builds HUD quads.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo

	ascent     float32
	lineHeight float32
}

// NewHudTextRenderer uses the Go Mono face bundled with x/image.
func NewHudTextRenderer(fontSize float64) (*TextRenderer, error) {
	return NewTextRenderer(gomono.TTF, fontSize)
}

func NewTextRenderer(ttf []byte, fontSize float64) (*TextRenderer, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	tr := &TextRenderer{
		AtlasImage: image.NewAlpha(image.Rect(0, 0, hudAtlasSize, hudAtlasSize)),
		Glyphs:     make(map[rune]GlyphInfo, lastGlyph-firstGlyph+1),
		ascent:     float32(m.Ascent.Ceil()),
		lineHeight: float32(m.Height.Ceil()),
	}
	if err := tr.rasterize(face); err != nil {
		return nil, err
	}
	return tr, nil
}

// rasterize packs glyphs onto shelves, left to right then top to bottom.
func (tr *TextRenderer) rasterize(face font.Face) error {
	pen := image.Pt(glyphPadding, glyphPadding)
	shelf := 0
	for r := rune(firstGlyph); r <= lastGlyph; r++ {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		size := dr.Size()
		if pen.X+size.X+glyphPadding > hudAtlasSize {
			pen = image.Pt(glyphPadding, pen.Y+shelf+glyphPadding)
			shelf = 0
		}
		if pen.Y+size.Y+glyphPadding > hudAtlasSize {
			return fmt.Errorf("glyph atlas full at %q", r)
		}

		dst := image.Rectangle{Min: pen, Max: pen.Add(size)}
		draw.Draw(tr.AtlasImage, dst, mask, maskp, draw.Src)
		tr.Glyphs[r] = GlyphInfo{
			UV: [4]float32{
				float32(dst.Min.X) / hudAtlasSize, float32(dst.Min.Y) / hudAtlasSize,
				float32(dst.Max.X) / hudAtlasSize, float32(dst.Max.Y) / hudAtlasSize,
			},
			Rect:    dr,
			Advance: float32(adv) / 64,
		}

		pen.X += size.X + glyphPadding
		shelf = max(shelf, size.Y)
	}
	return nil
}

// BuildVertices lays out items for a screenW x screenH target and returns two
// clip-space triangles per visible glyph. Whitespace advances the pen only.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	if tr == nil || screenW <= 0 || screenH <= 0 {
		return nil
	}
	sw, sh := float32(screenW), float32(screenH)
	toClip := func(x, y float32) [2]float32 {
		return [2]float32{x/sw*2 - 1, 1 - y/sh*2}
	}

	var out []TextVertex
	for _, item := range items {
		s := item.Scale
		penX := item.Position[0]
		baseline := item.Position[1] + tr.ascent*s
		for _, r := range item.Text {
			if r == '\n' {
				penX = item.Position[0]
				baseline += tr.lineHeight * s
				continue
			}
			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}
			if !g.Rect.Empty() {
				tl := toClip(penX+float32(g.Rect.Min.X)*s, baseline+float32(g.Rect.Min.Y)*s)
				br := toClip(penX+float32(g.Rect.Max.X)*s, baseline+float32(g.Rect.Max.Y)*s)
				out = appendQuad(out, tl, br, g.UV, item.Color)
			}
			penX += g.Advance * s
		}
	}
	return out
}

func appendQuad(out []TextVertex, tl, br [2]float32, uv [4]float32, color [4]float32) []TextVertex {
	tr := TextVertex{Pos: [2]float32{br[0], tl[1]}, UV: [2]float32{uv[2], uv[1]}, Color: color}
	bl := TextVertex{Pos: [2]float32{tl[0], br[1]}, UV: [2]float32{uv[0], uv[3]}, Color: color}
	return append(out,
		TextVertex{Pos: tl, UV: [2]float32{uv[0], uv[1]}, Color: color}, tr, bl,
		tr, TextVertex{Pos: br, UV: [2]float32{uv[2], uv[3]}, Color: color}, bl,
	)
}

func (tr *TextRenderer) LineHeight(scale float32) float32 {
	if tr == nil {
		return 0
	}
	return tr.lineHeight * scale
}
