package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/vector"
	"github.com/lyrebirdhq/mnemo/pkg/vector/chroma"
	"github.com/lyrebirdhq/mnemo/pkg/vector/qdrantvec"
	"github.com/lyrebirdhq/mnemo/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	TargetURL    string
	Path         string
	Host         string
	Port         int
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlitevec.New(sqlitevec.Config{
			DBPath:     o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrantvec.New(ctx, qdrantvec.Config{
			Host:           o.Host,
			Port:           o.Port,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.New(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
