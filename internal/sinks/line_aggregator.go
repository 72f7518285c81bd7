package sinks

import (
	"bytes"
	"strings"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const DefaultDelimiter = ","

// DelimitedLineAggregator renders a record as its fields joined by a delimiter.
// Fields are written verbatim, no quoting or escaping.
type DelimitedLineAggregator struct {
	Delimiter string
}

// Aggregate renders one record as a single line, without the line terminator.
func (a DelimitedLineAggregator) Aggregate(rec domain.FieldExtractor) string {
	delim := a.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	return strings.Join(rec.Fields(), delim)
}

// renderChunk renders every record of the batch, one line per record, each terminated by '\n'.
func renderChunk[T domain.FieldExtractor](agg DelimitedLineAggregator, b *domain.BatchProcess[T]) []byte {
	var buf bytes.Buffer
	for _, rec := range b.Records {
		buf.WriteString(agg.Aggregate(rec.Data))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
