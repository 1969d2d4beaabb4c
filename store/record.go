package store

import (
	"math"
	"strconv"

	"github.com/jacentio/artcatalog/internal/sqlbuild"
)

// Record is one row keyed by column name.
type Record map[string]any

// Int64 returns the integer value of column, accepting the numeric types SQL
// drivers and JSON decoding produce. Fractional or out-of-range values report false.
func (r Record) Int64(column string) (int64, bool) {
	switch v := r[column].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		// 2^63 is the first float64 above MaxInt64.
		if v != math.Trunc(v) || v < math.MinInt64 || v >= 1<<63 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ListOptions controls pagination and projection of a read.
type ListOptions struct {
	// Offset is the number of rows to skip (nil = none).
	Offset *int64

	// Limit is the maximum number of rows (nil = unbounded).
	Limit *int64

	// Fields is the ordered column projection (empty = all columns).
	Fields []string
}

func (o ListOptions) page() sqlbuild.Page {
	return sqlbuild.Page{Offset: o.Offset, Limit: o.Limit}
}

// Int64 returns a pointer to v, for populating ListOptions.
func Int64(v int64) *int64 {
	return &v
}
