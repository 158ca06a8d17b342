package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"tyiler/internal/imageutils"
	"tyiler/internal/selector"
)

const (
	ColourTilesDir  = "colour_tiles"
	ContourTilesDir = "contour_tiles"
)

// FilesystemError - не удалось прочитать папку или пересоздать папку сохранения
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// PrepareSaveFolder удаляет старую папку с тайлами вместе с содержимым и создаёт её заново
func PrepareSaveFolder(fs afero.Fs, rootFolder, folderName string) (string, error) {
	folderPath := filepath.Join(rootFolder, folderName)

	if err := fs.RemoveAll(folderPath); err != nil {
		return "", &FilesystemError{Op: "remove", Path: folderPath, Err: err}
	}
	if err := fs.MkdirAll(folderPath, 0755); err != nil {
		return "", &FilesystemError{Op: "create", Path: folderPath, Err: err}
	}
	return folderPath, nil
}

// ListFolders возвращает имена подпапок рабочей директории в лексикографическом порядке
func ListFolders(fs afero.Fs, workDir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, workDir)
	if err != nil {
		return nil, &FilesystemError{Op: "read", Path: workDir, Err: err}
	}
	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry.Name())
		}
	}
	return folders, nil
}

// processFolder нарезает тайлы для одной папки и возвращает все её ошибки
func (p *Pipeline) processFolder(name string) error {
	folder := filepath.Join(p.cfg.WorkDir, name)
	p.summary.FoldersChecked.Inc()
	p.metrics.FolderChecked()

	colourFolder, err := PrepareSaveFolder(p.fs, folder, ColourTilesDir)
	if err != nil {
		return err
	}
	contourFolder, err := PrepareSaveFolder(p.fs, folder, ContourTilesDir)
	if err != nil {
		return err
	}

	selection, err := p.selector.Select(folder)
	if err != nil {
		return &FilesystemError{Op: "scan", Path: folder, Err: err}
	}
	defer selection.Close()

	errs := multierr.Combine(selection.Skipped...)
	errs = multierr.Append(errs, p.tileImage(name, selector.KindColour, selection.Colour, colourFolder))
	errs = multierr.Append(errs, p.tileImage(name, selector.KindContour, selection.Contour, contourFolder))
	return errs
}

func (p *Pipeline) tileImage(folderName string, kind selector.Kind, handle *imageutils.Handle, saveFolder string) error {
	if handle == nil {
		p.logger.Debug("No adequate %s image found for %s.", kind, folderName)
		return nil
	}

	p.logger.Debug("Found adequate %s image in %s, %q of size %dx%d",
		kind, folderName, handle.Filename, handle.Width, handle.Height)

	prefix := fmt.Sprintf("%s_%s", folderName, kind)
	tiles, err := p.splitter.Split(handle, saveFolder, prefix)
	handle.Close()
	if err != nil {
		return fmt.Errorf("tile %s image %s: %w", kind, handle.Filename, err)
	}

	switch kind {
	case selector.KindColour:
		p.summary.ColourImages.Inc()
	case selector.KindContour:
		p.summary.ContourImages.Inc()
	}
	p.summary.Tiles.Add(int64(tiles))
	p.metrics.ImageTiled(kind.String(), tiles)
	return nil
}
