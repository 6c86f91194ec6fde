package mobilesam

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextDrawer 文本绘制工具
type TextDrawer struct {
	font     *opentype.Font
	face     font.Face
	fontSize float64
}

// NewTextDrawer 创建文本绘制工具
//
// # Params:
//
//	fontPath: 字体路径
func NewTextDrawer(fontPath string) (*TextDrawer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("打开字体文件失败：%w", err)
	}
	return NewTextDrawerFromBytes(fontBytes)
}

// NewTextDrawerFromBytes 从字体数据创建文本绘制工具
func NewTextDrawerFromBytes(fontBytes []byte) (*TextDrawer, error) {
	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败：%w", err)
	}

	d := &TextDrawer{font: ttFont}
	if err := d.SetSize(12); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSize 动态调整字体大小
func (d *TextDrawer) SetSize(fontSize float64) error {
	if d.face != nil && d.fontSize == fontSize {
		return nil
	}

	nf, err := opentype.NewFace(d.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}

	// 释放旧 Face 内存
	if d.face != nil {
		d.face.Close()
	}
	d.face = nf
	d.fontSize = fontSize
	return nil
}

// DrawText 绘制文本
//
// # Params:
//
//	img: 被绘制的图像
//	text: 绘制的文本
//	x, y: 绘制的坐标 (基线)
//	c: 绘制的颜色
func (d *TextDrawer) DrawText(img draw.Image, text string, x, y int, c color.Color) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: d.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	drawer.DrawString(text)
}

// Close 释放资源
func (d *TextDrawer) Close() {
	if d.face != nil {
		d.face.Close()
		d.face = nil
	}
}

// DrawMaskOverlay 将二值 Mask 以半透明颜色叠加到原图上
//
// # Params:
//
//	img: 原图
//	mask: 行优先的二值 Mask (>0 视为前景), 长度为 width*height
//	width, height: Mask 尺寸, 需与原图一致
//	c: 叠加颜色, 透明度由 c.A 决定
func DrawMaskOverlay(img image.Image, mask []float32, width, height int, c color.RGBA) (*image.RGBA, error) {
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("mask 尺寸 %dx%d 与图片尺寸 %dx%d 不一致", width, height, bounds.Dx(), bounds.Dy())
	}
	if len(mask) != width*height {
		return nil, fmt.Errorf("mask 长度 %d 与尺寸 %dx%d 不匹配", len(mask), width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	alpha := uint32(c.A)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y*width+x] <= 0 {
				continue
			}
			off := dst.PixOffset(x, y)
			px := dst.Pix[off : off+4 : off+4]
			px[0] = blend(px[0], c.R, alpha)
			px[1] = blend(px[1], c.G, alpha)
			px[2] = blend(px[2], c.B, alpha)
		}
	}
	return dst, nil
}

func blend(dst, src uint8, alpha uint32) uint8 {
	return uint8((uint32(dst)*(255-alpha) + uint32(src)*alpha) / 255)
}

// DrawPoints 绘制提示点
//
// # Params:
//
//	dst: 被绘制的图像
//	points: 提示点坐标 (原图像素坐标)
//	radius: 圆点半径
//	c: 圆点颜色
func DrawPoints(dst draw.Image, points []image.Point, radius int, c color.Color) {
	for _, p := range points {
		imageutil.DrawFilledCircle(dst, p, radius, c)
	}
}
