package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	// Extra decoders on top of the ones imaging registers (jpeg, png, gif, bmp, tiff).
	_ "golang.org/x/image/webp"
)

const (
	FeedWidth          = 1080
	FeedPortraitHeight = 1350
	FeedSquareHeight   = 1080

	squareLow  = 0.95
	squareHigh = 1.05

	// MaxPixels bounds the images accepted for a full decode.
	MaxPixels = 40_000_000
)

// Adapter reshapes images to the feed aspect-ratio contract.
type Adapter struct {
	target entity.TargetMode
	logger *zap.Logger
}

func NewAdapter(target entity.TargetMode, logger *zap.Logger) *Adapter {
	if target == "" {
		target = entity.TargetAuto
	}
	return &Adapter{target: target, logger: logger}
}

// Inspect reads the image header only. Geometry is the stored pixel grid;
// EXIF orientation is ignored here and in Normalize.
func (a *Adapter) Inspect(content []byte) (entity.ImageGeometry, error) {
	cfg, format, err := decodeConfig(content)
	if err != nil {
		return entity.ImageGeometry{}, err
	}
	return entity.ImageGeometry{
		Width:       cfg.Width,
		Height:      cfg.Height,
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
		Format:      format,
		ColorMode:   colorMode(cfg.ColorModel),
	}, nil
}

// TargetSize returns the canvas for an image of the given aspect ratio.
func (a *Adapter) TargetSize(ratio float64) (int, int) {
	switch a.target {
	case entity.TargetSquare:
		return FeedWidth, FeedSquareHeight
	case entity.TargetPortrait:
		return FeedWidth, FeedPortraitHeight
	default:
		return AutoTargetSize(ratio)
	}
}

// AutoTargetSize picks the canvas from the aspect-ratio band of ratio.
func AutoTargetSize(ratio float64) (int, int) {
	switch {
	case ratio >= squareLow && ratio <= squareHigh:
		return FeedWidth, FeedSquareHeight
	case ratio < squareLow:
		return FeedWidth, FeedPortraitHeight
	case ratio <= entity.MaxAspectRatio:
		return FeedWidth, int(math.Round(FeedWidth / ratio))
	default:
		return FeedWidth, int(math.Round(FeedWidth / entity.MaxAspectRatio))
	}
}

// Normalize decodes content, fits it on the target canvas and re-encodes it as JPEG.
func (a *Adapter) Normalize(content []byte, mode entity.FitMode, quality int) ([]byte, error) {
	if _, _, err := decodeConfig(content); err != nil {
		return nil, err
	}
	src, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}

	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("%w: empty image", entity.ErrDecode)
	}

	tw, th := a.TargetSize(float64(srcW) / float64(srcH))
	flat := flatten(src)

	var out *image.NRGBA
	switch mode {
	case entity.FitCrop:
		out = cropToFill(flat, tw, th)
	default:
		mode = entity.FitPad
		out = padToFit(flat, tw, th)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality))); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	a.logger.Info("image normalized",
		zap.String("mode", string(mode)),
		zap.Int("src_width", srcW),
		zap.Int("src_height", srcH),
		zap.Int("width", tw),
		zap.Int("height", th),
		zap.Int("bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// decodeConfig reads the header and rejects empty or oversized images
// before anything allocates the pixel buffer.
func decodeConfig(content []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("%w: empty dimensions %dx%d", entity.ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return image.Config{}, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", entity.ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}
	return cfg, format, nil
}

// flatten composites src over an opaque white background.
func flatten(src image.Image) *image.NRGBA {
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

func padToFit(img *image.NRGBA, tw, th int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := math.Min(float64(tw)/float64(w), float64(th)/float64(h))

	nw := clampDim(int(float64(w)*scale), tw)
	nh := clampDim(int(float64(h)*scale), th)
	resized := imaging.Resize(img, nw, nh, imaging.Lanczos)

	canvas := imaging.New(tw, th, color.White)
	return imaging.Paste(canvas, resized, image.Pt((tw-nw)/2, (th-nh)/2))
}

func cropToFill(img *image.NRGBA, tw, th int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := math.Max(float64(tw)/float64(w), float64(th)/float64(h))

	// Rounding must never leave the scaled image smaller than the canvas.
	nw := max(tw, int(math.Round(float64(w)*scale)))
	nh := max(th, int(math.Round(float64(h)*scale)))
	resized := imaging.Resize(img, nw, nh, imaging.Lanczos)

	return imaging.CropCenter(resized, tw, th)
}

func clampDim(v, limit int) int {
	if v < 1 {
		return 1
	}
	if v > limit {
		return limit
	}
	return v
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.NYCbCrAModel:
		return "RGBA"
	case color.YCbCrModel:
		return "RGB"
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	default:
		return "unknown"
	}
}
