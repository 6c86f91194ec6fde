package sam

import (
	"image"

	"github.com/disintegration/imaging"
)

// RawImage 交错存储的 8 位像素数据, 通道顺序 R G B (其余通道忽略)
//
// 流水线只读取 Data, 不会修改或持有它.
type RawImage struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

// RawImageFromImage 将任意 image.Image 转为 RGBA 交错的 RawImage
func RawImageFromImage(img image.Image) *RawImage {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return &RawImage{
		Data:     nrgba.Pix,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 4,
	}
}

func (img *RawImage) validate() error {
	if img == nil || img.Data == nil {
		return newError(KindInvalidInput, "image", "图片或像素数据为空")
	}
	if img.Width <= 0 || img.Height <= 0 {
		return newError(KindInvalidInput, "image", "图片尺寸无效: %dx%d", img.Width, img.Height)
	}
	if img.Channels < 3 {
		return newError(KindInvalidInput, "image", "至少需要 3 个通道, 实际 %d", img.Channels)
	}
	if need := img.Width * img.Height * img.Channels; len(img.Data) < need {
		return newError(KindInvalidInput, "image", "像素数据长度 %d 小于 %d", len(img.Data), need)
	}
	return nil
}
