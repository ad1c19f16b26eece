package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
)

const countAlias = "all"

// Count runs a server-side count aggregation over q.
func Count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := res[countAlias]
	if !ok {
		return 0, fmt.Errorf("count aggregation missing %q", countAlias)
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count aggregation type %T", raw)
	}
	return value.GetIntegerValue(), nil
}
