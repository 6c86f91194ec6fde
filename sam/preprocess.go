package sam

// Preprocess 双线性缩放 + 居中填充 + 归一化, 输出 NCHW [1, 3, targetLength, targetLength]
//
// 填充区域同样做归一化, 因此其值为 (0 - mean[c]) / std[c] 而不是 0.
func Preprocess(img *RawImage, targetLength int) (Tensor, Geometry, error) {
	if err := img.validate(); err != nil {
		return Tensor{}, Geometry{}, wrapError(KindPreprocess, "preprocess", err)
	}

	geo, err := ComputeGeometry(img.Height, img.Width, targetLength)
	if err != nil {
		return Tensor{}, Geometry{}, wrapError(KindPreprocess, "preprocess", err)
	}

	tensor, err := newTensor(1, 3, int64(targetLength), int64(targetLength))
	if err != nil {
		return Tensor{}, Geometry{}, wrapError(KindPreprocess, "preprocess", err)
	}
	data := tensor.Data
	plane := targetLength * targetLength

	offsetX, offsetY := geo.Offsets(targetLength)
	w, h, ch := img.Width, img.Height, img.Channels
	pix := img.Data

	for y := 0; y < geo.ResizedHeight; y++ {
		srcY := float32(y) / geo.Scale
		y0 := min(int(srcY), h-1)
		y1 := min(y0+1, h-1)
		wy := srcY - float32(y0)

		for x := 0; x < geo.ResizedWidth; x++ {
			srcX := float32(x) / geo.Scale
			x0 := min(int(srcX), w-1)
			x1 := min(x0+1, w-1)
			wx := srcX - float32(x0)

			i00 := (y0*w + x0) * ch
			i01 := (y0*w + x1) * ch
			i10 := (y1*w + x0) * ch
			i11 := (y1*w + x1) * ch
			dst := (y+offsetY)*targetLength + x + offsetX

			for c := 0; c < 3; c++ {
				pixel := (1-wx)*(1-wy)*float32(pix[i00+c]) +
					wx*(1-wy)*float32(pix[i01+c]) +
					(1-wx)*wy*float32(pix[i10+c]) +
					wx*wy*float32(pix[i11+c])

				// 先缩到 0-1 再放回 0-255, float32 舍入不可省略
				v := float32(pixel / 255.0)
				v = float32(v * 255.0)
				data[c*plane+dst] = (v - pixelMean[c]) / pixelStd[c]
			}
		}
	}

	// 填充区域: 整张图统一归一化, 未写入的位置等价于像素值 0
	for c := 0; c < 3; c++ {
		padValue := (0 - pixelMean[c]) / pixelStd[c]
		channel := data[c*plane : (c+1)*plane]
		for y := 0; y < targetLength; y++ {
			row := channel[y*targetLength : (y+1)*targetLength]
			inY := y >= offsetY && y < offsetY+geo.ResizedHeight
			for x := range row {
				if inY && x >= offsetX && x < offsetX+geo.ResizedWidth {
					continue
				}
				row[x] = padValue
			}
		}
	}

	return tensor, geo, nil
}
