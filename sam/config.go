package sam

import mobilesam "github.com/getcharzp/go-mobilesam"

type Label int

const (
	LabelPadding     Label = -1 // 补齐点, 仅内部追加
	LabelBackground  Label = 0  // 背景/排除
	LabelForeground  Label = 1  // 前景/点击
	LabelBoxTopLeft  Label = 2  // 框选左上
	LabelBoxBotRight Label = 3  // 框选右下
)

func (l Label) valid() bool {
	return l >= LabelBackground && l <= LabelBoxBotRight
}

// 归一化常量 (0-255 像素尺度, 依次为 R G B)
var (
	pixelMean = [3]float32{123.675, 116.28, 103.53}
	pixelStd  = [3]float32{58.395, 57.12, 57.375}
)

const (
	// TargetLength 输入图片的长边尺寸, Encoder 输入为 TargetLength x TargetLength
	TargetLength = 1024
	// MaskInputSize Decoder mask_input 的边长
	MaskInputSize = 256
	// MaskThreshold Mask logits 二值化阈值
	MaskThreshold float32 = 0.0
)

// 模型输入输出名称, 必须与 ONNX 图一致
const (
	encoderInput  = "images"
	encoderOutput = "image_embeddings"
)

var (
	decoderInputs  = []string{"image_embeddings", "point_coords", "point_labels", "mask_input", "has_mask_input", "orig_im_size"}
	decoderOutputs = []string{"masks", "iou_predictions", "low_res_masks"}
)

// Point 提示点, 坐标为原图像素坐标
type Point struct {
	X, Y  float32
	Label Label
}

// ForegroundPoints 将坐标全部标记为前景点
//
// # Params:
//
//	xy: 依次为 x0, y0, x1, y1 ...
func ForegroundPoints(xy ...float32) []Point {
	points := make([]Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		points = append(points, Point{X: xy[i], Y: xy[i+1], Label: LabelForeground})
	}
	return points
}

// Config 配置项
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	EncodeModelPath    string // 图片特征提取模型
	DecodeModelPath    string // Mask解码模型

	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: mobilesam.DefaultLibraryPath(),
		EncodeModelPath:    "./mobilesam_weights/mobile_sam_encoder.onnx",
		DecodeModelPath:    "./mobilesam_weights/mobile_sam_decoder.onnx",
	}
}
