package app

import "errors"

// AppConfig holds everything an App instance needs to run one render.
type AppConfig struct {
	DocPath    string // document file or directory of *.rg.hcl files
	OutputPath string // artifact destination

	ServiceURL  string // image generation endpoint used by the imaginate node
	UseGPU      bool
	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates a literal AppConfig and returns it.
func NewConfig(cfg AppConfig) (*AppConfig, error) {
	if cfg.DocPath == "" {
		return nil, errors.New("DocPath is a required configuration field and cannot be empty")
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OutputPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
