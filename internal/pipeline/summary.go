package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// FolderError - ошибки одной папки. Остальные папки при этом продолжают обрабатываться.
type FolderError struct {
	Folder string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Folder, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// Summary - итоги запуска. Счётчики безопасны для параллельной обработки папок.
type Summary struct {
	FoldersChecked atomic.Int64
	ColourImages   atomic.Int64
	ContourImages  atomic.Int64
	Tiles          atomic.Int64
	Duration       time.Duration
	UploadErr      error

	mu     sync.Mutex
	errors []*FolderError
}

func (s *Summary) addFolderError(folder string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, &FolderError{Folder: folder, Err: err})
}

// FolderErrors возвращает ошибки, отсортированные по имени папки
func (s *Summary) FolderErrors() []*FolderError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FolderError, len(s.errors))
	copy(out, s.errors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out
}

// Err объединяет ошибки папок и загрузки, nil если всё прошло успешно
func (s *Summary) Err() error {
	var err error
	for _, folderErr := range s.FolderErrors() {
		err = multierr.Append(err, folderErr)
	}
	return multierr.Append(err, s.UploadErr)
}

func (s *Summary) ImagesTiled() int64 {
	return s.ColourImages.Load() + s.ContourImages.Load()
}

// Print выводит итоговый отчёт
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n --- SCRIPT END ---\n")
	fmt.Fprintf(w, "Images tiled: %d (%d colour, %d contour)\n", s.ImagesTiled(), s.ColourImages.Load(), s.ContourImages.Load())
	fmt.Fprintf(w, "Tiles generated: %d\n", s.Tiles.Load())
	fmt.Fprintf(w, "Folders checked: %d folders\n", s.FoldersChecked.Load())
	fmt.Fprintf(w, "Running time: %.3fs\n", s.Duration.Seconds())
	if s.UploadErr != nil {
		fmt.Fprintf(w, "Upload failed: %v\n", s.UploadErr)
	}

	folderErrors := s.FolderErrors()
	if len(folderErrors) == 0 {
		return
	}
	fmt.Fprintf(w, "Folder errors: %d\n", len(folderErrors))
	for _, folderErr := range folderErrors {
		for _, err := range multierr.Errors(folderErr.Err) {
			fmt.Fprintf(w, "  %s: %v\n", folderErr.Folder, err)
		}
	}
}
