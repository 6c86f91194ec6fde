package sam

// Geometry 等比缩放参数
type Geometry struct {
	Scale         float32
	ResizedWidth  int
	ResizedHeight int
}

// ComputeGeometry 按长边缩放到 targetLength, 尺寸四舍五入
//
// 预处理与坐标变换都必须经由此函数计算, 保证两者的缩放完全一致.
func ComputeGeometry(origH, origW, targetLength int) (Geometry, error) {
	if origH <= 0 || origW <= 0 || targetLength <= 0 {
		return Geometry{}, newError(KindInvalidInput, "geometry",
			"尺寸必须为正数: origH=%d origW=%d target=%d", origH, origW, targetLength)
	}

	scale := float32(targetLength) / float32(max(origH, origW))
	return Geometry{
		Scale:         scale,
		ResizedHeight: int(float32(float32(origH)*scale) + 0.5),
		ResizedWidth:  int(float32(float32(origW)*scale) + 0.5),
	}, nil
}

// Offsets 居中填充的偏移量
func (g Geometry) Offsets(targetLength int) (offsetX, offsetY int) {
	return (targetLength - g.ResizedWidth) / 2, (targetLength - g.ResizedHeight) / 2
}
