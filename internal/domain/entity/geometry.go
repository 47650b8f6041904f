package entity

const (
	MinAspectRatio = 0.8
	MaxAspectRatio = 1.91
)

// ImageGeometry describes a decoded image header.
type ImageGeometry struct {
	Width       int
	Height      int
	AspectRatio float64
	Format      string
	ColorMode   string
}

// Valid reports whether the aspect ratio is accepted by feed destinations as-is.
func (g ImageGeometry) Valid() bool {
	return g.AspectRatio >= MinAspectRatio && g.AspectRatio <= MaxAspectRatio
}

type FitMode string

const (
	FitPad  FitMode = "pad"
	FitCrop FitMode = "crop"
)

type TargetMode string

const (
	TargetAuto     TargetMode = "auto"
	TargetPortrait TargetMode = "portrait"
	TargetSquare   TargetMode = "square"
)
