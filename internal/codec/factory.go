package codec

import (
	"fmt"

	"bam-go/internal/bam"
	"bam-go/internal/config"
)

// NewCodecFromConfig creates a Codec based on the configuration type.
func NewCodecFromConfig(cfg config.CodecConfig, logger bam.Logger) (bam.Codec, error) {
	switch cfg.Type {
	case "archive2", "":
		return NewArchive2(cfg.ToolPath, logger), nil
	case "test":
		return NewTestCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec type: %q", cfg.Type)
	}
}
