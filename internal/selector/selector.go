package selector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"tyiler/internal/imageutils"
	"tyiler/internal/logger"
)

// Kind - к какой группе относится файл-кандидат
type Kind int

const (
	KindNone Kind = iota
	KindColour
	KindContour
)

func (k Kind) String() string {
	switch k {
	case KindColour:
		return "colour"
	case KindContour:
		return "contour"
	default:
		return "none"
	}
}

// Classify определяет группу по имени файла.
// "contour" + "overlay" - контур, без "contour" - цвет, "contour" без "overlay" не подходит никуда.
func Classify(name, extension string) Kind {
	if !strings.Contains(name, extension) {
		return KindNone
	}
	if !strings.Contains(name, "contour") {
		return KindColour
	}
	if strings.Contains(name, "overlay") {
		return KindContour
	}
	return KindNone
}

// better возвращает true, если candidate строго больше текущего лучшего
func better(candidate, best *imageutils.Handle) bool {
	if best == nil {
		return true
	}
	return candidate.Area() > best.Area()
}

// Selection - лучшие изображения одной папки. Любое из полей может быть nil.
type Selection struct {
	Colour  *imageutils.Handle
	Contour *imageutils.Handle
	// Skipped - кандидаты, которые не удалось декодировать
	Skipped []error
}

// Close освобождает оба изображения
func (s *Selection) Close() {
	s.Colour.Close()
	s.Contour.Close()
}

type Selector struct {
	fs        afero.Fs
	extension string
	logger    *logger.LoggerManager
}

func NewSelector(fs afero.Fs, extension string, loggerManager *logger.LoggerManager) *Selector {
	return &Selector{
		fs:        fs,
		extension: extension,
		logger:    loggerManager,
	}
}

// Select ищет в папке (без рекурсии) самое большое цветное и самое большое контурное изображение.
// Файлы обходятся в лексикографическом порядке, при равной площади остаётся первый.
func (s *Selector) Select(folder string) (*Selection, error) {
	entries, err := afero.ReadDir(s.fs, folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	selection := &Selection{}
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		kind := Classify(entry.Name(), s.extension)
		if kind == KindNone {
			continue
		}

		path := filepath.Join(folder, entry.Name())
		candidate, err := imageutils.Open(s.fs, path)
		if err != nil {
			s.logger.Warn("Skipping unreadable image %s: %v", path, err)
			selection.Skipped = append(selection.Skipped, err)
			continue
		}

		best := &selection.Colour
		if kind == KindContour {
			best = &selection.Contour
		}
		if better(candidate, *best) {
			(*best).Close()
			*best = candidate
		} else {
			candidate.Close()
		}
	}
	return selection, nil
}
