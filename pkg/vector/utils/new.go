package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paideialabs/paideia/pkg/vector"
	"github.com/paideialabs/paideia/pkg/vector/chroma"
	"github.com/paideialabs/paideia/pkg/vector/qdrant"
	"github.com/paideialabs/paideia/pkg/vector/sqlitevec"
)

// NewVectorDriverOpts selects and configures a vector store backend.
type NewVectorDriverOpts struct {
	ProviderType   string
	TargetURL      string
	Host           string
	Port           int
	DBPath         string
	CollectionName string
	Dimensions     uint
	Logger         *slog.Logger
}

// NewVectorDriver constructs the configured vector driver.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           o.Host,
			Port:           o.Port,
			CollectionName: o.CollectionName,
			Dimensions:     uint64(o.Dimensions),
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.CollectionName,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
