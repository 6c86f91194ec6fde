package sam

import (
	"image"
	"time"

	"github.com/getcharzp/go-mobilesam/logger"
	"go.uber.org/zap"
)

// State 上下文状态
type State int

const (
	StateCreated           State = iota // 无缓存的图片特征
	StateImageProcessed                 // 已缓存图片特征
	StateSegmentationReady              // 已基于缓存特征完成至少一次分割
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateImageProcessed:
		return "ImageProcessed"
	case StateSegmentationReady:
		return "SegmentationReady"
	case StateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// embeddingCache 单槽位的图片特征缓存, 每次 ProcessImage 都会先清空
type embeddingCache struct {
	embedding Tensor
	resident  bool

	imageW, imageH int // 原图尺寸
	modelW, modelH int // Encoder 输入尺寸
}

func (c *embeddingCache) invalidate() {
	*c = embeddingCache{}
}

func (c *embeddingCache) store(embedding Tensor, imageW, imageH, modelW, modelH int) {
	*c = embeddingCache{
		embedding: embedding,
		resident:  true,
		imageW:    imageW,
		imageH:    imageH,
		modelW:    modelW,
		modelH:    modelH,
	}
}

// Option Context 可选项
type Option func(*Context)

// WithLogger 指定日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics 指定指标
func WithMetrics(m *Metrics) Option {
	return func(c *Context) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Context 持有推理后端与图片特征缓存
//
// 用法: ProcessImage 一次, 随后 RunSegmentation 任意次.
// Context 不是并发安全的, 多 goroutine 使用时需每个 goroutine 一个 Context 或由调用方加锁.
type Context struct {
	engine    InferenceEngine
	cache     embeddingCache
	state     State
	lastError string

	log     *zap.Logger
	metrics *Metrics
}

// NewContext 加载 Encoder 与 Decoder 模型并创建上下文
func NewContext(cfg Config, opts ...Option) (*Context, error) {
	engine, err := NewOnnxEngine(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewContextWithEngine(engine, opts...)
	if err != nil {
		engine.Destroy()
		return nil, err
	}
	c.log.Info("模型加载完成",
		zap.String("encoder", cfg.EncodeModelPath),
		zap.String("decoder", cfg.DecodeModelPath),
		zap.Bool("cuda", cfg.UseCuda))
	return c, nil
}

// NewContextWithEngine 使用自定义推理后端创建上下文, 上下文接管 engine 的生命周期
func NewContextWithEngine(engine InferenceEngine, opts ...Option) (*Context, error) {
	if engine == nil {
		return nil, newError(KindInvalidInput, "create", "engine 不能为空")
	}
	c := &Context{
		engine:  engine,
		state:   StateCreated,
		log:     logger.Log(),
		metrics: NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.setResident(false)
	return c, nil
}

// Destroy 释放缓存与推理后端, 可重复调用
func (c *Context) Destroy() error {
	if c == nil || c.state == StateDestroyed {
		return nil
	}
	c.cache.invalidate()
	c.metrics.setResident(false)
	c.state = StateDestroyed

	err := c.engine.Destroy()
	c.engine = nil
	if err != nil {
		return c.fail("destroy", wrapError(KindEngine, "destroy", err))
	}
	c.log.Debug("上下文已销毁")
	return nil
}

// State 当前状态
func (c *Context) State() State {
	if c == nil {
		return StateDestroyed
	}
	return c.state
}

// LastError 最近一次失败的错误信息
func (c *Context) LastError() string {
	if c == nil {
		return "Invalid context"
	}
	return c.lastError
}

// EmbeddingShape 当前缓存的特征形状, 无缓存时返回 nil
func (c *Context) EmbeddingShape() Shape {
	if c == nil || !c.cache.resident {
		return nil
	}
	return c.cache.embedding.Shape.Clone()
}

// ProcessGoImage 同 ProcessImage, 接受 image.Image
func (c *Context) ProcessGoImage(img image.Image) error {
	if img == nil {
		return c.ProcessImage(nil)
	}
	return c.ProcessImage(RawImageFromImage(img))
}

// ProcessImage 预处理图片并提取特征, 结果缓存在上下文中
//
// 旧缓存总是先被丢弃; 失败时缓存保持为空.
func (c *Context) ProcessImage(img *RawImage) error {
	const op = "process_image"
	if err := c.usable(op); err != nil {
		return err
	}
	start := time.Now()

	c.cache.invalidate()
	c.metrics.setResident(false)
	c.state = StateCreated

	input, geo, err := Preprocess(img, TargetLength)
	if err != nil {
		return c.fail(op, err)
	}
	offsetX, offsetY := geo.Offsets(TargetLength)
	c.log.Debug("预处理完成",
		zap.Int("width", img.Width), zap.Int("height", img.Height),
		zap.Int("resized_width", geo.ResizedWidth), zap.Int("resized_height", geo.ResizedHeight),
		zap.Float32("scale", geo.Scale),
		zap.Int("offset_x", offsetX), zap.Int("offset_y", offsetY),
		zap.Stringer("shape", input.Shape))

	embedding, err := c.engine.Encode(input)
	if err != nil {
		return c.fail(op, asEngineError("encode", err))
	}
	if len(embedding.Shape) != 4 {
		return c.fail(op, newError(KindInternal, "encode", "image_embeddings 维度应为 4, 实际 %v", embedding.Shape))
	}
	if err := embedding.verify(); err != nil {
		return c.fail(op, wrapError(KindInternal, "encode", err))
	}

	c.cache.store(embedding, img.Width, img.Height, int(input.Shape[3]), int(input.Shape[2]))
	c.state = StateImageProcessed
	c.metrics.setResident(true)
	c.metrics.observeEncode(start)

	c.log.Debug("图片特征已缓存",
		zap.Stringer("embedding_shape", embedding.Shape),
		zap.Int("embedding_size", len(embedding.Data)))
	return nil
}

// RunSegmentation 基于缓存的图片特征执行分割
//
// # Params:
//
//	points: 提示点, 原图像素坐标
//	origWidth, origHeight: 原图尺寸, 输出 Mask 与之相同
func (c *Context) RunSegmentation(points []Point, origWidth, origHeight int) (*SegmentationResult, error) {
	const op = "run_segmentation"
	if err := c.usable(op); err != nil {
		return nil, err
	}
	if !c.cache.resident {
		return nil, c.fail(op, newError(KindNoEmbedding, op, "尚未成功处理图片"))
	}
	if len(points) == 0 {
		return nil, c.fail(op, newError(KindInvalidInput, op, "提示点为空"))
	}
	for i, pt := range points {
		if !pt.Label.valid() {
			return nil, c.fail(op, newError(KindInvalidInput, op, "提示点 %d 的标签 %d 无效", i, pt.Label))
		}
	}
	if origWidth != c.cache.imageW || origHeight != c.cache.imageH {
		c.log.Warn("分割尺寸与已处理图片不一致",
			zap.Int("width", origWidth), zap.Int("height", origHeight),
			zap.Int("image_width", c.cache.imageW), zap.Int("image_height", c.cache.imageH))
	}
	start := time.Now()

	transformed, geo, err := TransformPoints(points, origWidth, origHeight, TargetLength)
	if err != nil {
		return nil, c.fail(op, err)
	}
	c.log.Debug("坐标变换完成",
		zap.Int("points", len(points)), zap.Float32("scale", geo.Scale),
		zap.Int("resized_width", geo.ResizedWidth), zap.Int("resized_height", geo.ResizedHeight))

	in, err := c.decoderInput(transformed, origWidth, origHeight)
	if err != nil {
		return nil, c.fail(op, err)
	}

	out, err := c.engine.Decode(in)
	if err != nil {
		return nil, c.fail(op, asEngineError("decode", err))
	}
	c.log.Debug("Decoder 输出",
		zap.Stringer("masks", out.Masks.Shape),
		zap.Stringer("iou_predictions", out.IoUPredictions.Shape))

	logits, err := maskPlane(out.Masks, origWidth, origHeight)
	if err != nil {
		return nil, c.fail(op, err)
	}
	if len(out.IoUPredictions.Data) == 0 {
		return nil, c.fail(op, newError(KindInternal, "decode", "iou_predictions 为空"))
	}
	mask, err := Binarize(logits, origWidth, origHeight, MaskThreshold)
	if err != nil {
		return nil, c.fail(op, err)
	}

	result := &SegmentationResult{
		Mask:   mask,
		Width:  origWidth,
		Height: origHeight,
		Score:  out.IoUPredictions.Data[0],
	}
	c.state = StateSegmentationReady
	c.metrics.observeDecode(start)

	c.log.Debug("分割完成", zap.Float32("iou", result.Score), zap.Int("area", result.Area()))
	return result, nil
}

// decoderInput 组装 Decoder 输入, 末尾追加 (0, 0, -1) 补齐点
func (c *Context) decoderInput(points []Point, origWidth, origHeight int) (DecoderInput, error) {
	n := len(points) + 1
	coords := Tensor{Data: make([]float32, 2*n), Shape: Shape{1, int64(n), 2}}
	labels := Tensor{Data: make([]float32, n), Shape: Shape{1, int64(n)}}
	for i, pt := range points {
		coords.Data[2*i] = pt.X
		coords.Data[2*i+1] = pt.Y
		labels.Data[i] = float32(pt.Label)
	}
	labels.Data[n-1] = float32(LabelPadding)

	maskInput, err := newTensor(1, 1, MaskInputSize, MaskInputSize)
	if err != nil {
		return DecoderInput{}, err
	}

	return DecoderInput{
		ImageEmbeddings: c.cache.embedding,
		PointCoords:     coords,
		PointLabels:     labels,
		MaskInput:       maskInput,
		HasMaskInput:    Tensor{Data: []float32{0}, Shape: Shape{1}},
		OrigImSize:      Tensor{Data: []float32{float32(origHeight), float32(origWidth)}, Shape: Shape{2}},
	}, nil
}

// maskPlane 取出第一张 Mask, Decoder 已按 orig_im_size 还原尺寸
func maskPlane(masks Tensor, width, height int) ([]float32, error) {
	s := masks.Shape
	if len(s) < 2 || s[len(s)-2] != int64(height) || s[len(s)-1] != int64(width) {
		return nil, newError(KindInternal, "decode", "masks 形状 %v 与原图 %dx%d 不匹配", s, width, height)
	}
	if len(masks.Data) < width*height {
		return nil, newError(KindInternal, "decode", "masks 数据长度 %d 小于 %d", len(masks.Data), width*height)
	}
	return masks.Data[:width*height], nil
}

func (c *Context) usable(op string) error {
	if c == nil {
		return newError(KindInvalidInput, op, "context 为空")
	}
	if c.state == StateDestroyed {
		return c.fail(op, newError(KindInvalidInput, op, "context 已销毁"))
	}
	return nil
}

// fail 记录最近一次错误
func (c *Context) fail(op string, err error) error {
	c.lastError = err.Error()
	c.metrics.recordError(op, err)
	c.log.Error("操作失败", zap.String("op", op), zap.Stringer("kind", KindOf(err)), zap.Error(err))
	return err
}

func asEngineError(op string, err error) error {
	if KindOf(err) != KindUnknown {
		return err
	}
	return wrapError(KindEngine, op, err)
}
