// Package datasource supplies record snapshots to the query engine. Sources
// are read-only: they never write back what they load.
package datasource

import (
	"context"
	"fmt"

	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/flatten"
	"github.com/steinarvk/whizdex/lib/logging"
	"github.com/steinarvk/whizdex/lib/recquery"
	"go.uber.org/zap"
)

type Source interface {
	Records(ctx context.Context, name string) ([]recquery.Record, error)
}

func sourceError(name, message string, err error) error {
	return dexerror.New(
		dexerror.WithKind(dexerror.KindSource),
		dexerror.WithErrorID("source_error"),
		dexerror.WithPublicMessage(fmt.Sprintf("%s: %s", name, message)),
		dexerror.WithPublicData("source", name),
		dexerror.WithCause(err),
	)
}

// collector turns serialized records into flat records, enforcing limits.
type collector struct {
	name       string
	flattener  flatten.Flattener
	maxRecords int

	records []recquery.Record
	seenIDs map[string]int
	logger  *zap.Logger
}

func newCollector(ctx context.Context, name string, limits config.Limits) *collector {
	return &collector{
		name:       name,
		flattener:  limits.Flattener(),
		maxRecords: limits.MaxRecordsPerCollection,
		seenIDs:    map[string]int{},
		logger:     logging.FromContext(ctx).With(zap.String("source", name)),
	}
}

func (c *collector) add(position string, data []byte) error {
	if c.maxRecords > 0 && len(c.records) >= c.maxRecords {
		return sourceError(c.name, fmt.Sprintf("more than %d records", c.maxRecords), nil)
	}

	rec, err := c.flattener.FlattenJSON(data)
	if err != nil {
		return sourceError(c.name, fmt.Sprintf("invalid record at %s", position), err)
	}

	if prev, ok := c.seenIDs[rec.ID]; ok {
		c.logger.Warn("duplicate record id",
			zap.String("id", rec.ID),
			zap.Int("first_index", prev),
			zap.String("position", position))
	} else {
		c.seenIDs[rec.ID] = len(c.records)
	}

	c.records = append(c.records, recquery.Record(rec.Fields))
	return nil
}

func (c *collector) result() []recquery.Record {
	c.logger.Debug("loaded records", zap.Int("count", len(c.records)))
	if c.records == nil {
		return []recquery.Record{}
	}
	return c.records
}
