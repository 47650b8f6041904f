package imageproc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decode(t *testing.T, b []byte) (image.Image, string) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img, format
}

func gray(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

func TestAutoTargetSize_Bands(t *testing.T) {
	cases := []struct {
		ratio float64
		w, h  int
	}{
		{0.3, 1080, 1350},
		{0.8, 1080, 1350},
		{0.9499, 1080, 1350},
		{0.95, 1080, 1080},
		{1.0, 1080, 1080},
		{1.05, 1080, 1080},
		{1.06, 1080, 1019},
		{1.5, 1080, 720},
		{1.91, 1080, 565},
		{1.9100001, 1080, 565},
		{3.0, 1080, 565},
		{42, 1080, 565},
	}
	for _, tc := range cases {
		w, h := AutoTargetSize(tc.ratio)
		assert.Equal(t, tc.w, w, "ratio %v", tc.ratio)
		assert.Equal(t, tc.h, h, "ratio %v", tc.ratio)
	}
}

func TestAutoTargetSize_Properties(t *testing.T) {
	for r := 0.01; r < 0.95; r += 0.01 {
		w, h := AutoTargetSize(r)
		assert.Equal(t, [2]int{1080, 1350}, [2]int{w, h}, "ratio %v", r)
	}
	for r := 0.95; r <= 1.05; r += 0.005 {
		w, h := AutoTargetSize(r)
		assert.Equal(t, [2]int{1080, 1080}, [2]int{w, h}, "ratio %v", r)
	}
	for r := 1.051; r <= 1.91; r += 0.01 {
		w, h := AutoTargetSize(r)
		assert.Equal(t, [2]int{1080, int(math.Round(1080 / r))}, [2]int{w, h}, "ratio %v", r)
	}
	for r := 1.92; r < 20; r += 0.25 {
		w, h := AutoTargetSize(r)
		assert.Equal(t, [2]int{1080, 565}, [2]int{w, h}, "ratio %v", r)
	}
}

func TestTargetSize_FixedModes(t *testing.T) {
	w, h := NewAdapter(entity.TargetPortrait, zap.NewNop()).TargetSize(1.0)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1350, h)

	w, h = NewAdapter(entity.TargetSquare, zap.NewNop()).TargetSize(3.0)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1080, h)
}

func TestInspect_Validity(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())

	cases := []struct {
		w, h  int
		valid bool
	}{
		{800, 1000, true},
		{1910, 1000, true},
		{1200, 1200, true},
		{799, 1000, false},
		{1920, 1000, false},
		{1200, 400, false},
	}
	for _, tc := range cases {
		g, err := a.Inspect(solidPNG(t, tc.w, tc.h, color.Black))
		require.NoError(t, err)
		assert.Equal(t, tc.w, g.Width)
		assert.Equal(t, tc.h, g.Height)
		assert.Equal(t, "png", g.Format)
		assert.Equal(t, "RGBA", g.ColorMode)
		assert.Equal(t, tc.valid, g.Valid(), "%dx%d", tc.w, tc.h)
	}
}

func TestInspect_Garbage(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	_, err := a.Inspect([]byte("definitely not an image"))
	require.ErrorIs(t, err, entity.ErrDecode)
}

func TestNormalize_Garbage(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	_, err := a.Normalize([]byte{0x89, 'P', 'N', 'G'}, entity.FitPad, 90)
	require.ErrorIs(t, err, entity.ErrDecode)
}

// withHeaderSize rewrites the IHDR dimensions of a PNG and fixes its CRC.
func withHeaderSize(t *testing.T, src []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), src...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestOversizedHeaderIsRejectedBeforeDecode(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	huge := withHeaderSize(t, solidPNG(t, 4, 4, color.White), 30000, 30000)

	_, err := a.Inspect(huge)
	require.ErrorIs(t, err, entity.ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")

	_, err = a.Normalize(huge, entity.FitPad, 90)
	require.ErrorIs(t, err, entity.ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")
}

// rotatedJPEG encodes a w x h JPEG tagged with EXIF orientation 6 (rotate 90 CW).
func rotatedJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	raw := buf.Bytes()

	app1 := []byte{
		0xFF, 0xE1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0, 0,
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x06, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	return append(out, raw[2:]...)
}

func TestInspectAndNormalizeAgreeOnOrientation(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	src := rotatedJPEG(t, 400, 200)

	geom, err := a.Inspect(src)
	require.NoError(t, err)
	assert.Equal(t, 400, geom.Width)
	assert.Equal(t, 200, geom.Height)

	out, err := a.Normalize(src, entity.FitPad, 90)
	require.NoError(t, err)
	img, _ := decode(t, out)

	tw, th := a.TargetSize(geom.AspectRatio)
	assert.Equal(t, tw, img.Bounds().Dx())
	assert.Equal(t, th, img.Bounds().Dy())
	assert.Equal(t, 565, th)
}

func TestNormalize_WideImageCapsToMaxLandscape(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	src := solidPNG(t, 1200, 400, color.RGBA{R: 200, A: 255})

	for _, mode := range []entity.FitMode{entity.FitPad, entity.FitCrop} {
		out, err := a.Normalize(src, mode, 95)
		require.NoError(t, err)

		img, format := decode(t, out)
		assert.Equal(t, "jpeg", format, "mode %s", mode)
		assert.Equal(t, 1080, img.Bounds().Dx(), "mode %s", mode)
		assert.Equal(t, 565, img.Bounds().Dy(), "mode %s", mode)
	}
}

func TestNormalize_PadCentersOnWhite(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	out, err := a.Normalize(solidPNG(t, 600, 1000, color.Black), entity.FitPad, 95)
	require.NoError(t, err)

	img, _ := decode(t, out)
	require.Equal(t, 1080, img.Bounds().Dx())
	require.Equal(t, 1350, img.Bounds().Dy())

	// scaled to 810x1350, so 135px white bars left and right
	assert.Greater(t, gray(img.At(10, 675)), uint8(240))
	assert.Greater(t, gray(img.At(1070, 675)), uint8(240))
	assert.Less(t, gray(img.At(540, 675)), uint8(15))
}

func TestNormalize_FlattensTransparency(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	out, err := a.Normalize(solidPNG(t, 500, 1000, color.NRGBA{}), entity.FitPad, 95)
	require.NoError(t, err)

	img, _ := decode(t, out)
	assert.Greater(t, gray(img.At(540, 675)), uint8(240))
}

func TestNormalize_CropIsCentered(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1200, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 1200; x++ {
			switch {
			case x < 400:
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			case x < 800:
				img.Set(x, y, color.RGBA{G: 255, A: 255})
			default:
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	out, err := a.Normalize(buf.Bytes(), entity.FitCrop, 95)
	require.NoError(t, err)

	res, _ := decode(t, out)
	r, g, b, _ := res.At(540, 282).RGBA()
	assert.Greater(t, g>>8, uint32(200))
	assert.Less(t, r>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
}

func TestNormalize_AlreadySquare(t *testing.T) {
	a := NewAdapter(entity.TargetAuto, zap.NewNop())
	out, err := a.Normalize(solidPNG(t, 1200, 1200, color.White), entity.FitPad, 0)
	require.NoError(t, err)

	res, _ := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 1080, 1080), res.Bounds())
}
