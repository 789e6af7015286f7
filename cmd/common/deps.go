// Package common provides shared dependency construction for subcommands.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/newsforge/registerminer/internal/config"
	"github.com/newsforge/registerminer/internal/logger"
)

// Deps holds the dependencies every subcommand needs.
type Deps struct {
	Config *config.Config
	Logger logger.Logger
}

// NewCommandDeps loads the configuration from viper and builds the logger.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}
