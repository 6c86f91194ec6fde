package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	mobilesam "github.com/getcharzp/go-mobilesam"
	"github.com/getcharzp/go-mobilesam/logger"
	"github.com/getcharzp/go-mobilesam/sam"
	"github.com/spf13/cobra"
	"github.com/up-zero/gotool/imageutil"
	"go.uber.org/zap"
)

type segmentOptions struct {
	image   string
	points  []string
	out     string
	overlay string
	font    string
}

func newSegmentCmd(a *app) *cobra.Command {
	opts := &segmentOptions{}
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Segment an image from point prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(opts.points)
			if err != nil {
				return err
			}
			return runSegment(cmd, a.cfg, opts, points)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.image, "image", "i", "", "input image (jpg, png)")
	f.StringArrayVarP(&opts.points, "point", "p", nil, "prompt point as x,y[,label] in image pixels; label 1=foreground (default), 0=background")
	f.StringVarP(&opts.out, "out", "o", "mask.png", "output binary mask path")
	f.StringVar(&opts.overlay, "overlay", "", "optional overlay output path")
	f.StringVar(&opts.font, "font", "", "optional TTF/OTF font used to print the score on the overlay")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("point")
	return cmd
}

func runSegment(cmd *cobra.Command, cfg *Config, opts *segmentOptions, points []sam.Point) error {
	log := logger.Log()

	img, err := imageutil.Open(opts.image)
	if err != nil {
		return fmt.Errorf("打开图片失败: %w", err)
	}
	bounds := img.Bounds()

	ctx, err := sam.NewContext(cfg.SamConfig(), sam.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := ctx.Destroy(); err != nil {
			log.Warn("销毁上下文失败", zap.Error(err))
		}
	}()

	if err := ctx.ProcessGoImage(img); err != nil {
		return err
	}
	result, err := ctx.RunSegmentation(points, bounds.Dx(), bounds.Dy())
	if err != nil {
		return err
	}
	defer result.Free()

	if err := imageutil.Save(opts.out, result.ToGray(), 100); err != nil {
		return fmt.Errorf("保存 mask 失败: %w", err)
	}
	if opts.overlay != "" {
		if err := saveOverlay(img, result, points, opts); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "score=%.4f area=%d mask=%s\n", result.Score, result.Area(), opts.out)
	return nil
}

func saveOverlay(img image.Image, result *sam.SegmentationResult, points []sam.Point, opts *segmentOptions) error {
	overlay, err := mobilesam.DrawMaskOverlay(img, result.Mask, result.Width, result.Height, color.RGBA{R: 30, G: 144, B: 255, A: 128})
	if err != nil {
		return err
	}

	var fg, bg []image.Point
	for _, pt := range points {
		p := image.Point{X: int(pt.X), Y: int(pt.Y)}
		if pt.Label == sam.LabelBackground {
			bg = append(bg, p)
		} else {
			fg = append(fg, p)
		}
	}
	radius := max(3, min(result.Width, result.Height)/150)
	mobilesam.DrawPoints(overlay, fg, radius, color.RGBA{G: 255, A: 255})
	mobilesam.DrawPoints(overlay, bg, radius, color.RGBA{R: 255, A: 255})

	if opts.font != "" {
		d, err := mobilesam.NewTextDrawer(opts.font)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.SetSize(float64(max(12, result.Height/30))); err != nil {
			return err
		}
		d.DrawText(overlay, fmt.Sprintf("IoU %.3f", result.Score), 10, 10+max(12, result.Height/30), color.White)
	}

	if err := imageutil.Save(opts.overlay, overlay, 100); err != nil {
		return fmt.Errorf("保存 overlay 失败: %w", err)
	}
	return nil
}

// parsePoints 解析 "x,y[,label]" 格式的提示点
func parsePoints(specs []string) ([]sam.Point, error) {
	if len(specs) == 0 {
		return nil, errors.New("至少需要一个 --point")
	}
	points := make([]sam.Point, 0, len(specs))
	for _, s := range specs {
		pt, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	return points, nil
}

func parsePoint(s string) (sam.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return sam.Point{}, fmt.Errorf("无效的提示点 %q, 格式应为 x,y[,label]", s)
	}

	var xy [2]float32
	for i := 0; i < 2; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 32)
		if err != nil {
			return sam.Point{}, fmt.Errorf("无效的提示点坐标 %q: %w", s, err)
		}
		xy[i] = float32(v)
	}

	label := sam.LabelForeground
	if len(parts) == 3 {
		l, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return sam.Point{}, fmt.Errorf("无效的提示点标签 %q: %w", s, err)
		}
		label = sam.Label(l)
	}
	return sam.Point{X: xy[0], Y: xy[1], Label: label}, nil
}
