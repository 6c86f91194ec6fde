package sam

// Binarize 按阈值将 Mask logits 转为 0/1 Mask
func Binarize(logits []float32, width, height int, threshold float32) ([]float32, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(KindInternal, "binarize", "mask 尺寸无效: %dx%d", width, height)
	}
	if len(logits) != width*height {
		return nil, newError(KindInternal, "binarize", "logits 长度 %d 与 %dx%d 不匹配", len(logits), width, height)
	}

	mask := make([]float32, len(logits))
	for i, v := range logits {
		if v > threshold {
			mask[i] = 1
		}
	}
	return mask, nil
}
