package port

import "github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"

type ImageAdapter interface {
	Inspect(content []byte) (entity.ImageGeometry, error)
	Normalize(content []byte, mode entity.FitMode, quality int) ([]byte, error)
	TargetSize(ratio float64) (width, height int)
}
