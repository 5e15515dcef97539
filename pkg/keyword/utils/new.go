package keywordutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/keyword"
	"github.com/lyrebirdhq/mnemo/pkg/keyword/inmemory"
	"github.com/lyrebirdhq/mnemo/pkg/keyword/sqlitefts"
)

type NewDriverOpts struct {
	ProviderType string
	Path         string
	Logger       *zap.Logger
}

func NewDriver(o *NewDriverOpts) (keyword.Driver, error) {
	switch o.ProviderType {
	case "inmemory":
		return inmemory.New(o.Logger), nil
	case "sqlite":
		return sqlitefts.New(sqlitefts.Config{
			Path: o.Path,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported keyword index provider: %s", o.ProviderType)
	}
}
