package sam

import "image"

// SegmentationResult 分割结果, 由调用方持有
type SegmentationResult struct {
	Mask   []float32 // 0 or 1, 行优先, 长度 Width*Height
	Width  int
	Height int
	Score  float32 // Decoder 预测的第一个 IoU
}

// Free 释放 Mask, 可重复调用
func (r *SegmentationResult) Free() {
	if r == nil {
		return
	}
	r.Mask = nil
	r.Width = 0
	r.Height = 0
	r.Score = 0
}

// Area 前景像素数
func (r *SegmentationResult) Area() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, v := range r.Mask {
		if v > 0 {
			n++
		}
	}
	return n
}

// ToGray 转为灰度图, 前景 255 背景 0
func (r *SegmentationResult) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for i, v := range r.Mask {
		if v > 0 {
			img.Pix[i] = 255
		}
	}
	return img
}
