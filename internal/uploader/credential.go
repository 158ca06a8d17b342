package uploader

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// LoadCredential читает значение key из .env файла (строки KEY=value).
// Отсутствие файла, ключа или пустое значение дают ErrMissingCredential.
func LoadCredential(fs afero.Fs, path, key string) (string, error) {
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrMissingCredential)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	value := unquote(strings.TrimSpace(v.GetString(key)))
	if value == "" {
		return "", fmt.Errorf("%s in %s: %w", key, path, ErrMissingCredential)
	}
	return value, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
