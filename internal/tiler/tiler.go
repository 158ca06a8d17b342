// Package tiler режет изображение на сетку тайлов фиксированного размера.
package tiler

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/spf13/afero"

	"tyiler/internal/config"
	"tyiler/internal/imageutils"
	"tyiler/internal/logger"
)

// Tile - прямоугольник исходного изображения и его место в сетке
type Tile struct {
	Index int
	Col   int
	Row   int
	Box   image.Rectangle
}

// Edge сообщает, касается ли тайл последней строки или последнего столбца
func (t Tile) Edge(tilesX, tilesY int) bool {
	return t.Col == tilesX-1 || t.Row == tilesY-1
}

// Name возвращает имя файла тайла. Столбец идёт раньше строки, так файлы
// удобнее сортируются в файловом менеджере.
func Name(prefix string, t Tile) string {
	return fmt.Sprintf("%s_tile_%d_%d_%d.png", prefix, t.Index, t.Col, t.Row)
}

// GridSize возвращает число тайлов по горизонтали и вертикали
func GridSize(width, height, maxTileSize int) (int, int, error) {
	if maxTileSize <= 0 {
		return 0, 0, &config.ConfigurationError{
			Field: "max_tile_size",
			Value: maxTileSize,
			Err:   errors.New("must be a positive integer"),
		}
	}
	return ceilDiv(width, maxTileSize), ceilDiv(height, maxTileSize), nil
}

// Plan раскладывает изображение width x height на тайлы построчно
func Plan(width, height, maxTileSize int) ([]Tile, error) {
	tilesX, tilesY, err := GridSize(width, height, maxTileSize)
	if err != nil {
		return nil, err
	}
	tiles := make([]Tile, 0, tilesX*tilesY)
	for row := 0; row < tilesY; row++ {
		for col := 0; col < tilesX; col++ {
			tiles = append(tiles, Tile{
				Index: row*tilesX + col + 1,
				Col:   col,
				Row:   row,
				Box: image.Rect(
					maxTileSize*col,
					maxTileSize*row,
					min(maxTileSize*(col+1), width),
					min(maxTileSize*(row+1), height),
				),
			})
		}
	}
	return tiles, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

type Options struct {
	MaxTileSize int
	Padding     bool
	PadColour   imageutils.PadColour
}

// OptionsFromConfig собирает Options из проверенной конфигурации
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	padColour, err := imageutils.ParsePadColour(cfg.PadColour)
	if err != nil {
		return Options{}, &config.ConfigurationError{Field: "pad_colour", Value: cfg.PadColour, Err: err}
	}
	return Options{
		MaxTileSize: cfg.MaxTileSize,
		Padding:     cfg.Padding(),
		PadColour:   padColour,
	}, nil
}

// Splitter пишет тайлы одного изображения в папку сохранения
type Splitter struct {
	fs     afero.Fs
	opts   Options
	logger *logger.LoggerManager
}

func NewSplitter(fs afero.Fs, opts Options, loggerManager *logger.LoggerManager) *Splitter {
	return &Splitter{
		fs:     fs,
		opts:   opts,
		logger: loggerManager,
	}
}

// Split режет handle на тайлы и возвращает их количество.
// Первая ошибка записи прерывает нарезку этого изображения.
func (s *Splitter) Split(handle *imageutils.Handle, saveFolder, tilePrefix string) (int, error) {
	img := handle.Image()
	if img == nil {
		return 0, fmt.Errorf("split %s: image handle is closed", handle.Filename)
	}

	tilesX, tilesY, err := GridSize(handle.Width, handle.Height, s.opts.MaxTileSize)
	if err != nil {
		return 0, err
	}
	tiles, err := Plan(handle.Width, handle.Height, s.opts.MaxTileSize)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Generating %d (%dx%d) tile(s) for %s of size %dx%d in %s",
		len(tiles), tilesX, tilesY, handle.Filename, handle.Width, handle.Height, saveFolder)

	fill := s.opts.PadColour.For(img)
	for _, t := range tiles {
		var out image.Image = imageutils.Crop(img, t.Box)
		if s.opts.Padding && t.Edge(tilesX, tilesY) {
			out = imageutils.Pad(out, s.opts.MaxTileSize, fill)
		}

		name := Name(tilePrefix, t)
		if err := imageutils.SavePNG(s.fs, out, filepath.Join(saveFolder, name)); err != nil {
			return 0, fmt.Errorf("write tile %s: %w", name, err)
		}

		size := out.Bounds().Size()
		s.logger.Debug("Created tile %q with box-coordinates (%d,%d,%d,%d) and size %dx%d",
			name, t.Box.Min.X, t.Box.Min.Y, t.Box.Max.X, t.Box.Max.Y, size.X, size.Y)
	}

	s.logger.Debug("Generated %d tile(s)", len(tiles))
	return tilesX * tilesY, nil
}
