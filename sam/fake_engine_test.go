package sam

import (
	"errors"
)

// fakeEngine 记录调用的假推理后端
//
// Encode 返回以调用次数填充的特征, 便于区分不同图片的缓存.
// Decode 左半边输出正 logits, 右半边输出负 logits.
type fakeEngine struct {
	encodeCalls  int
	decodeCalls  int
	destroyCalls int

	encodeErr  error
	decodeErr  error
	destroyErr error

	embeddingShape Shape
	iou            []float32
	maskShape      func(h, w int64) Shape

	lastEncode Tensor
	lastDecode DecoderInput
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		embeddingShape: Shape{1, 4, 2, 2},
		iou:            []float32{0.9, 0.5, 0.1},
	}
}

func (f *fakeEngine) Encode(image Tensor) (Tensor, error) {
	f.encodeCalls++
	f.lastEncode = image
	if f.encodeErr != nil {
		return Tensor{}, f.encodeErr
	}
	t, err := newTensor(f.embeddingShape...)
	if err != nil {
		return Tensor{}, err
	}
	for i := range t.Data {
		t.Data[i] = float32(f.encodeCalls)
	}
	return t, nil
}

func (f *fakeEngine) Decode(in DecoderInput) (DecoderOutput, error) {
	f.decodeCalls++
	f.lastDecode = in
	if f.decodeErr != nil {
		return DecoderOutput{}, f.decodeErr
	}
	if len(in.OrigImSize.Data) != 2 {
		return DecoderOutput{}, errors.New("orig_im_size 长度错误")
	}
	h, w := int64(in.OrigImSize.Data[0]), int64(in.OrigImSize.Data[1])

	shape := Shape{1, 1, h, w}
	if f.maskShape != nil {
		shape = f.maskShape(h, w)
	}
	masks, err := newTensor(shape...)
	if err != nil {
		return DecoderOutput{}, err
	}
	for i := range masks.Data {
		if int64(i)%w < w/2 {
			masks.Data[i] = 2.5
		} else {
			masks.Data[i] = -2.5
		}
	}
	lowRes, _ := newTensor(1, 1, MaskInputSize, MaskInputSize)

	return DecoderOutput{
		Masks:          masks,
		IoUPredictions: Tensor{Data: append([]float32(nil), f.iou...), Shape: Shape{1, int64(len(f.iou))}},
		LowResMasks:    lowRes,
	}, nil
}

func (f *fakeEngine) Destroy() error {
	f.destroyCalls++
	return f.destroyErr
}

// solidImage 生成纯色 RGB 图片
func solidImage(w, h int, r, g, b byte) *RawImage {
	data := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		data[i*3] = r
		data[i*3+1] = g
		data[i*3+2] = b
	}
	return &RawImage{Data: data, Width: w, Height: h, Channels: 3}
}
