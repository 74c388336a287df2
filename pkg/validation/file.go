package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// SpreadsheetRules - ограничения на загружаемую таблицу.
type SpreadsheetRules struct {
	MaxSizeMB         int64
	AllowedExtensions []string
	AllowedMimeTypes  []string
}

func DefaultSpreadsheetRules(maxSizeMB int64) SpreadsheetRules {
	return SpreadsheetRules{
		MaxSizeMB:         maxSizeMB,
		AllowedExtensions: []string{".xlsx", ".xlsm", ".csv", ".txt"},
		// xlsx определяется как zip, csv как текст
		AllowedMimeTypes: []string{"application/zip", "text/plain; charset=utf-8", "text/plain; charset=utf-16le", "text/plain; charset=utf-16be", "application/octet-stream"},
	}
}

// ValidateSpreadsheet проверяет размер, расширение и сигнатуру файла.
// После проверки курсор возвращается в начало.
func ValidateSpreadsheet(fileHeader *multipart.FileHeader, file io.ReadSeeker, rules SpreadsheetRules) error {
	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return fmt.Errorf("размер файла (%.2f MB) превышает лимит в %d MB", float64(fileHeader.Size)/1024/1024, rules.MaxSizeMB)
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !slices.Contains(rules.AllowedExtensions, ext) {
		return fmt.Errorf("недопустимое расширение файла: %q", ext)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("ошибка чтения файла")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("ошибка обработки файла")
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return fmt.Errorf("недопустимый формат файла: %s", mimeType)
	}
	return nil
}
