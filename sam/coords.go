package sam

// TransformPoints 将原图坐标映射到缩放后 (未填充) 的坐标空间
//
// 不加填充偏移: Decoder 期望的是缩放后图像内的坐标.
// 缩放比例取 resized/orig 的比值, 而非 Geometry.Scale.
func TransformPoints(points []Point, origW, origH, targetLength int) ([]Point, Geometry, error) {
	geo, err := ComputeGeometry(origH, origW, targetLength)
	if err != nil {
		return nil, Geometry{}, err
	}

	ratioX := float32(geo.ResizedWidth) / float32(origW)
	ratioY := float32(geo.ResizedHeight) / float32(origH)

	out := make([]Point, len(points))
	for i, pt := range points {
		out[i] = Point{
			X:     pt.X * ratioX,
			Y:     pt.Y * ratioY,
			Label: pt.Label,
		}
	}
	return out, geo, nil
}
