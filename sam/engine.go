package sam

import (
	"errors"
	"fmt"

	mobilesam "github.com/getcharzp/go-mobilesam"
	"github.com/up-zero/gotool/convertutil"
	ort "github.com/yalue/onnxruntime_go"
)

// InferenceEngine Encoder/Decoder 推理后端
//
// 所有调用同步阻塞; 返回的 Tensor 由调用方持有, 与后端内存无关.
type InferenceEngine interface {
	// Encode images [1,3,T,T] -> image_embeddings [1,C,H,W]
	Encode(image Tensor) (Tensor, error)
	// Decode 固定 6 输入 3 输出
	Decode(in DecoderInput) (DecoderOutput, error)
	Destroy() error
}

// DecoderInput Decoder 的 6 个输入
type DecoderInput struct {
	ImageEmbeddings Tensor // [1, C, H, W]
	PointCoords     Tensor // [1, N, 2]
	PointLabels     Tensor // [1, N]
	MaskInput       Tensor // [1, 1, 256, 256]
	HasMaskInput    Tensor // [1]
	OrigImSize      Tensor // [2], (height, width)
}

// ordered 与 decoderInputs 名称顺序一致
func (in DecoderInput) ordered() []Tensor {
	return []Tensor{in.ImageEmbeddings, in.PointCoords, in.PointLabels, in.MaskInput, in.HasMaskInput, in.OrigImSize}
}

// DecoderOutput Decoder 的 3 个输出
type DecoderOutput struct {
	Masks          Tensor // [1, 1, origH, origW]
	IoUPredictions Tensor // [1, K]
	LowResMasks    Tensor // [1, 1, 256, 256]
}

// OnnxEngine 基于 ONNX Runtime 的推理后端
type OnnxEngine struct {
	encoderSession *ort.DynamicAdvancedSession
	decoderSession *ort.DynamicAdvancedSession
}

// NewOnnxEngine 加载 Encoder 和 Decoder 模型
func NewOnnxEngine(cfg Config) (*OnnxEngine, error) {
	onnxConfig := new(mobilesam.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, wrapError(KindInvalidInput, "create", fmt.Errorf("复制参数失败: %w", err))
	}
	if err := onnxConfig.New(); err != nil {
		return nil, wrapError(KindEngine, "create", err)
	}
	defer onnxConfig.Destroy()

	encSession, err := ort.NewDynamicAdvancedSession(cfg.EncodeModelPath,
		[]string{encoderInput}, []string{encoderOutput}, onnxConfig.SessionOptions)
	if err != nil {
		return nil, wrapError(KindEngine, "create", fmt.Errorf("创建 Encoder ONNX 会话失败: %w", err))
	}

	decSession, err := ort.NewDynamicAdvancedSession(cfg.DecodeModelPath,
		decoderInputs, decoderOutputs, onnxConfig.SessionOptions)
	if err != nil {
		encSession.Destroy()
		return nil, wrapError(KindEngine, "create", fmt.Errorf("创建 Decoder ONNX 会话失败: %w", err))
	}

	return &OnnxEngine{
		encoderSession: encSession,
		decoderSession: decSession,
	}, nil
}

// Destroy 释放两个会话
func (e *OnnxEngine) Destroy() error {
	var errs []error
	if e.encoderSession != nil {
		if err := e.encoderSession.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("销毁 Encoder ONNX 会话失败: %w", err))
		}
		e.encoderSession = nil
	}
	if e.decoderSession != nil {
		if err := e.decoderSession.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("销毁 Decoder ONNX 会话失败: %w", err))
		}
		e.decoderSession = nil
	}
	return errors.Join(errs...)
}

// Encode 图像特征提取
func (e *OnnxEngine) Encode(image Tensor) (Tensor, error) {
	inputs, err := toOrtValues(image)
	if err != nil {
		return Tensor{}, wrapError(KindEngine, "encode", err)
	}
	defer destroyValues(inputs)

	outputs := make([]ort.Value, 1)
	if err := e.encoderSession.Run(inputs, outputs); err != nil {
		return Tensor{}, wrapError(KindEngine, "encode", fmt.Errorf("encoder 推理失败: %w", err))
	}
	defer destroyValues(outputs)

	return fromOrtValue(outputs[0])
}

// Decode Mask 解码
func (e *OnnxEngine) Decode(in DecoderInput) (DecoderOutput, error) {
	inputs, err := toOrtValues(in.ordered()...)
	if err != nil {
		return DecoderOutput{}, wrapError(KindEngine, "decode", err)
	}
	defer destroyValues(inputs)

	outputs := make([]ort.Value, len(decoderOutputs))
	if err := e.decoderSession.Run(inputs, outputs); err != nil {
		return DecoderOutput{}, wrapError(KindEngine, "decode", fmt.Errorf("decoder 推理失败: %w", err))
	}
	defer destroyValues(outputs)

	var out DecoderOutput
	for i, dst := range []*Tensor{&out.Masks, &out.IoUPredictions, &out.LowResMasks} {
		t, err := fromOrtValue(outputs[i])
		if err != nil {
			return DecoderOutput{}, err
		}
		*dst = t
	}
	return out, nil
}

// toOrtValues 创建输入 Tensor, 失败时释放已创建的部分
func toOrtValues(tensors ...Tensor) ([]ort.Value, error) {
	values := make([]ort.Value, 0, len(tensors))
	for i, t := range tensors {
		if err := t.verify(); err != nil {
			destroyValues(values)
			return nil, fmt.Errorf("输入 %d: %w", i, err)
		}
		v, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			destroyValues(values)
			return nil, fmt.Errorf("创建 Input Tensor %v 失败: %w", t.Shape, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// fromOrtValue 拷贝输出数据, 形状从运行时读取
func fromOrtValue(v ort.Value) (Tensor, error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok || t == nil {
		return Tensor{}, newError(KindInternal, "output", "输出不是 float32 张量: %T", v)
	}
	data := t.GetData()
	return Tensor{
		Data:  append([]float32(nil), data...),
		Shape: Shape(t.GetShape().Clone()),
	}, nil
}

func destroyValues(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}
