package sam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(c int, v float32) float32 {
	return (v - pixelMean[c]) / pixelStd[c]
}

func TestPreprocess_ShapeAndPadding(t *testing.T) {
	img := solidImage(20, 10, 200, 100, 50)

	tensor, geo, err := Preprocess(img, 32)
	require.NoError(t, err)

	assert.Equal(t, Shape{1, 3, 32, 32}, tensor.Shape)
	assert.Len(t, tensor.Data, 3*32*32)
	assert.Equal(t, 32, geo.ResizedWidth)
	assert.Equal(t, 16, geo.ResizedHeight)

	offsetX, offsetY := geo.Offsets(32)
	assert.Equal(t, 0, offsetX)
	assert.Equal(t, 8, offsetY)

	rgb := [3]float32{200, 100, 50}
	plane := 32 * 32
	for c := 0; c < 3; c++ {
		// 填充区域: 上下各 8 行
		assert.InDelta(t, normalized(c, 0), tensor.Data[c*plane+0*32+5], 1e-6)
		assert.InDelta(t, normalized(c, 0), tensor.Data[c*plane+31*32+31], 1e-6)
		// 图像区域
		assert.InDelta(t, normalized(c, rgb[c]), tensor.Data[c*plane+8*32+0], 1e-4)
		assert.InDelta(t, normalized(c, rgb[c]), tensor.Data[c*plane+23*32+31], 1e-4)
	}
}

func TestPreprocess_PadIsNotZero(t *testing.T) {
	tensor, _, err := Preprocess(solidImage(4, 2, 0, 0, 0), 8)
	require.NoError(t, err)

	for c := 0; c < 3; c++ {
		pad := tensor.Data[c*64]
		assert.NotEqual(t, float32(0), pad)
		assert.Equal(t, (0-pixelMean[c])/pixelStd[c], pad)
	}
}

func TestPreprocess_BilinearAndBoundaryClamp(t *testing.T) {
	// 2x1 图片放大到 4x2: scale = 2
	img := &RawImage{
		Data:     []byte{0, 0, 0, 100, 100, 100},
		Width:    2,
		Height:   1,
		Channels: 3,
	}

	tensor, geo, err := Preprocess(img, 4)
	require.NoError(t, err)
	require.Equal(t, 4, geo.ResizedWidth)
	require.Equal(t, 2, geo.ResizedHeight)

	offsetX, offsetY := geo.Offsets(4)
	require.Equal(t, 0, offsetX)
	require.Equal(t, 1, offsetY)

	row := tensor.Data[offsetY*4 : offsetY*4+4]
	assert.InDelta(t, normalized(0, 0), row[0], 1e-5)
	assert.InDelta(t, normalized(0, 50), row[1], 1e-5)
	assert.InDelta(t, normalized(0, 100), row[2], 1e-5)
	// 最后一列的 +1 邻居被截断到 width-1
	assert.InDelta(t, normalized(0, 100), row[3], 1e-5)

	// 第二行 srcY = 0.5, y1 被截断到 height-1
	row2 := tensor.Data[(offsetY+1)*4 : (offsetY+1)*4+4]
	assert.InDelta(t, normalized(0, 50), row2[1], 1e-5)
}

func TestPreprocess_ChannelLayout(t *testing.T) {
	img := solidImage(3, 3, 10, 20, 30)
	tensor, _, err := Preprocess(img, 3)
	require.NoError(t, err)

	for c, v := range []float32{10, 20, 30} {
		for i := 0; i < 9; i++ {
			assert.InDelta(t, normalized(c, v), tensor.Data[c*9+i], 1e-4)
		}
	}
}

func TestPreprocess_FourChannels(t *testing.T) {
	img := &RawImage{
		Data:     []byte{10, 20, 30, 255, 10, 20, 30, 0},
		Width:    2,
		Height:   1,
		Channels: 4,
	}
	tensor, _, err := Preprocess(img, 2)
	require.NoError(t, err)

	// 缩放后 2x1, offsetY = 0; 第 4 通道被忽略
	assert.InDelta(t, normalized(0, 10), tensor.Data[0], 1e-4)
	assert.InDelta(t, normalized(2, 30), tensor.Data[2*4+1], 1e-4)
}

func TestPreprocess_DoesNotMutateInput(t *testing.T) {
	img := solidImage(5, 7, 1, 2, 3)
	before := append([]byte(nil), img.Data...)

	_, _, err := Preprocess(img, 16)
	require.NoError(t, err)
	assert.Equal(t, before, img.Data)
}

func TestPreprocess_Errors(t *testing.T) {
	tests := []struct {
		name string
		img  *RawImage
	}{
		{"nil image", nil},
		{"nil data", &RawImage{Width: 2, Height: 2, Channels: 3}},
		{"zero width", &RawImage{Data: []byte{1, 2, 3}, Width: 0, Height: 1, Channels: 3}},
		{"short buffer", &RawImage{Data: []byte{1, 2, 3}, Width: 2, Height: 1, Channels: 3}},
		{"two channels", &RawImage{Data: []byte{1, 2}, Width: 1, Height: 1, Channels: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Preprocess(tt.img, TargetLength)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPreprocess)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, KindPreprocess, KindOf(err))
		})
	}
}

func TestPreprocessAndTransform_SameScale(t *testing.T) {
	for _, s := range []struct{ w, h int }{{2000, 1000}, {640, 480}, {31, 977}, {1, 1}} {
		img := solidImage(s.w, s.h, 0, 0, 0)
		_, preGeo, err := Preprocess(img, TargetLength)
		require.NoError(t, err)

		_, coordGeo, err := TransformPoints(nil, s.w, s.h, TargetLength)
		require.NoError(t, err)

		assert.Equal(t, preGeo, coordGeo)
	}
}
