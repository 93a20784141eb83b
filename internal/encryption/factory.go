package encryption

import (
	"fmt"

	"pm-go/internal/config"
	"pm-go/internal/pm"
)

// NewEncryptorFromConfig creates an export encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.ExportConfig) (pm.ExportEncryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg.Armor, 0), nil
	case "none":
		return PlainEncryptor{}, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown export encryption type: %q", cfg.Type)
	}
}
