package comments

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/artcatalog/dal"
)

// FetchComments returns comments whose attributes equal every entry of
// filter. An empty filter matches all comments. The first offset matches are
// skipped and at most limit are returned; a zero limit means no limit.
//
// A filter on item_id alone is served by the item index when one is
// configured. Anything else is a paginated Scan, which reads the whole table.
func (s *Store) FetchComments(ctx context.Context, filter map[string]string, offset, limit int) ([]Comment, error) {
	if offset < 0 || limit < 0 {
		return nil, dal.Invalid("offset and limit must not be negative")
	}
	expr, names, values, err := equalityExpression(filter)
	if err != nil {
		return nil, err
	}

	c := &collector{offset: offset, limit: limit, comments: []Comment{}}

	if itemID, ok := filter[attrItemID]; ok && len(filter) == 1 && s.itemIndex != "" {
		s.logger.DebugContext(ctx, "querying item index", "index", s.itemIndex, "itemID", itemID)
		p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			IndexName:                 aws.String(s.itemIndex),
			KeyConditionExpression:    expr,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		for p.HasMorePages() && !c.full() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, dal.Wrap("query comments", err)
			}
			if err := c.add(page.Items); err != nil {
				return nil, err
			}
		}
		return c.comments, nil
	}

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	})
	for p.HasMorePages() && !c.full() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, dal.Wrap("scan comments", err)
		}
		if err := c.add(page.Items); err != nil {
			return nil, err
		}
	}
	return c.comments, nil
}

// ListCommentsForItem returns every comment posted on itemID.
func (s *Store) ListCommentsForItem(ctx context.Context, itemID string) ([]Comment, error) {
	if itemID == "" {
		return nil, dal.Invalid("item_id is required")
	}
	return s.FetchComments(ctx, map[string]string{attrItemID: itemID}, 0, 0)
}

// equalityExpression renders filter as an AND of equality conditions in
// sorted key order. It returns nils for an empty filter.
func equalityExpression(filter map[string]string) (*string, map[string]string, map[string]types.AttributeValue, error) {
	if len(filter) == 0 {
		return nil, nil, nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		if k == "" {
			return nil, nil, nil, dal.Invalid("empty filter attribute")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := make(map[string]string, len(keys))
	values := make(map[string]types.AttributeValue, len(keys))
	var expr string
	for i, k := range keys {
		name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[name] = k
		values[value] = &types.AttributeValueMemberS{Value: filter[k]}
		if i > 0 {
			expr += " AND "
		}
		expr += name + " = " + value
	}
	return aws.String(expr), names, values, nil
}

// collector applies offset and limit across result pages.
type collector struct {
	offset   int
	limit    int
	skipped  int
	comments []Comment
}

func (c *collector) full() bool {
	return c.limit > 0 && len(c.comments) >= c.limit
}

func (c *collector) add(items []map[string]types.AttributeValue) error {
	for _, item := range items {
		if c.full() {
			return nil
		}
		if c.skipped < c.offset {
			c.skipped++
			continue
		}
		comment, err := decodeComment(item)
		if err != nil {
			return err
		}
		c.comments = append(c.comments, *comment)
	}
	return nil
}
