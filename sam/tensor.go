package sam

import (
	"fmt"
	"math"
	"strings"
)

// Shape 张量形状描述
type Shape []int64

// Size 元素总数, 任一维度非正时返回错误
func (s Shape) Size() (int, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("空形状")
	}
	total := int64(1)
	for i, d := range s {
		if d <= 0 {
			return 0, fmt.Errorf("维度 %d 必须 > 0, 实际 %d", i, d)
		}
		if total > math.MaxInt32/d {
			return 0, fmt.Errorf("形状 %v 元素数溢出", s)
		}
		total *= d
	}
	return int(total), nil
}

func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Tensor float32 张量, 行优先
type Tensor struct {
	Data  []float32
	Shape Shape
}

// newTensor 分配零值张量
func newTensor(shape ...int64) (Tensor, error) {
	n, err := Shape(shape).Size()
	if err != nil {
		return Tensor{}, wrapError(KindAllocationFailure, "alloc", err)
	}
	return Tensor{Data: make([]float32, n), Shape: Shape(shape)}, nil
}

// verify 检查数据长度与形状一致
func (t Tensor) verify() error {
	n, err := t.Shape.Size()
	if err != nil {
		return err
	}
	if len(t.Data) != n {
		return fmt.Errorf("数据长度 %d 与形状 %v 不匹配", len(t.Data), t.Shape)
	}
	return nil
}
