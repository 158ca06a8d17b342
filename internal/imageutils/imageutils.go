package imageutils

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/afero"
)

// DecodeError означает, что файл-кандидат не удалось открыть или декодировать
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Handle - декодированное изображение вместе с именем файла-источника.
// После Close растр освобождается, размеры остаются доступны.
type Handle struct {
	Filename string
	Width    int
	Height   int
	image    image.Image
}

// NewHandle оборачивает уже декодированное изображение
func NewHandle(filename string, img image.Image) *Handle {
	bounds := img.Bounds()
	return &Handle{
		Filename: filename,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		image:    img,
	}
}

// Image возвращает растр или nil, если handle уже закрыт
func (h *Handle) Image() image.Image {
	return h.image
}

// Area - площадь в пикселях, по ней сравниваются кандидаты
func (h *Handle) Area() int {
	return h.Width * h.Height
}

// Close освобождает растр. Повторный вызов ничего не делает.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.image = nil
}

func (h *Handle) Closed() bool {
	return h == nil || h.image == nil
}

// Open читает и декодирует изображение из fs
func Open(fs afero.Fs, path string) (*Handle, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return NewHandle(path, img), nil
}

// Crop вырезает прямоугольник, заданный относительно левого верхнего угла изображения.
// Результат всегда начинается в (0,0).
func Crop(img image.Image, box image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, box.Add(img.Bounds().Min))
}

// Pad кладёт tile в левый верхний угол непрозрачного холста size x size
func Pad(tile image.Image, size int, fill color.NRGBA) *image.NRGBA {
	fill.A = 0xff
	canvas := imaging.New(size, size, fill)
	return imaging.Paste(canvas, tile, image.Pt(0, 0))
}

// SavePNG сохраняет изображение без потерь
func SavePNG(fs afero.Fs, img image.Image, path string) error {
	file, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := imaging.Encode(file, img, imaging.PNG); err != nil {
		file.Close()
		return fmt.Errorf("failed to save image: %w", err)
	}
	return file.Close()
}

// PadColour - цвет холста для крайних тайлов. Auto берёт доминирующий цвет исходника.
type PadColour struct {
	Auto   bool
	Colour color.NRGBA
}

// ParsePadColour разбирает "#rrggbb" или "auto"
func ParsePadColour(value string) (PadColour, error) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "auto") {
		return PadColour{Auto: true}, nil
	}
	c, err := colorful.Hex(value)
	if err != nil {
		return PadColour{}, fmt.Errorf("expected #rrggbb or auto: %w", err)
	}
	r, g, b := c.RGB255()
	return PadColour{Colour: color.NRGBA{R: r, G: g, B: b, A: 0xff}}, nil
}

// For возвращает цвет холста для конкретного изображения
func (p PadColour) For(img image.Image) color.NRGBA {
	if !p.Auto || img == nil {
		return p.Colour
	}
	c := dominantcolor.Find(img)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (p PadColour) String() string {
	if p.Auto {
		return "auto"
	}
	c, _ := colorful.MakeColor(p.Colour)
	return c.Hex()
}
