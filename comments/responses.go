package comments

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/artcatalog/dal"
)

// responseNames are the expression attribute names shared by every
// positional response update.
var responseNames = map[string]string{
	"#r":    attrResponses,
	"#rid":  attrResponseID,
	"#text": attrResponseText,
	"#dt":   attrDatetime,
	"#ver":  attrVersionID,
}

// AddResponse appends a response to a comment. Appends from different
// responders commute, so no version is checked and the comment's own
// version is left alone. It fails with dal.ErrNotFound if the comment is absent.
func (s *Store) AddResponse(ctx context.Context, commentID, responderID, text string) (*Response, error) {
	if responderID == "" {
		return nil, dal.Invalid("responder_id is required")
	}

	r := Response{
		ResponseID:   s.newID(),
		ResponderID:  responderID,
		ResponseText: text,
		Datetime:     s.timestamp(),
		VersionID:    s.newID(),
	}
	av, err := attributevalue.Marshal(r)
	if err != nil {
		return nil, dal.Wrap("encode response", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 commentKey(commentID),
		UpdateExpression:    aws.String("SET #r = list_append(if_not_exists(#r, :empty), :new)"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#r":  attrResponses,
			"#id": attrCommentID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":new":   &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, fmt.Errorf("comment %s: %w", commentID, dal.ErrNotFound)
		}
		return nil, dal.Wrap("add response", err)
	}

	s.logger.InfoContext(ctx, "response added",
		"commentID", commentID,
		"responseID", r.ResponseID,
	)
	return &r, nil
}

// FetchSingleResponse returns one response of a comment. It fails with
// dal.ErrNotFound if either the comment or the response is absent.
func (s *Store) FetchSingleResponse(ctx context.Context, commentID, responseID string) (*Response, error) {
	c, idx, err := s.locateResponse(ctx, commentID, responseID)
	if err != nil {
		return nil, err
	}
	r := c.Responses[idx]
	return &r, nil
}

// UpdateResponse replaces the text of a response owned by responderID. Only
// the targeted list element is written, and only if it still holds
// responseID at oldVersionID; the comment's version and sibling responses are
// untouched. A stale version, or a response that moved, yields
// dal.ErrWriteConflict.
func (s *Store) UpdateResponse(ctx context.Context, commentID, responseID, newText, responderID, oldVersionID string) (*Response, error) {
	c, idx, err := s.locateResponse(ctx, commentID, responseID)
	if err != nil {
		return nil, err
	}
	if c.Responses[idx].ResponderID != responderID {
		return nil, fmt.Errorf("response %s: %w", responseID, dal.ErrWrongUser)
	}

	elem := fmt.Sprintf("#r[%d]", idx)
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key:       commentKey(commentID),
		UpdateExpression: aws.String(fmt.Sprintf(
			"SET %[1]s.#text = :text, %[1]s.#dt = :dt, %[1]s.#ver = :ver", elem)),
		ConditionExpression: aws.String(fmt.Sprintf(
			"%[1]s.#rid = :rid AND %[1]s.#ver = :expected", elem)),
		ExpressionAttributeNames: responseNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":text":     &types.AttributeValueMemberS{Value: newText},
			":dt":       &types.AttributeValueMemberS{Value: s.timestamp()},
			":ver":      &types.AttributeValueMemberS{Value: s.newID()},
			":rid":      &types.AttributeValueMemberS{Value: responseID},
			":expected": &types.AttributeValueMemberS{Value: oldVersionID},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			s.logger.InfoContext(ctx, "response update rejected",
				"commentID", commentID,
				"responseID", responseID,
				"expectedVersion", oldVersionID,
			)
			return nil, fmt.Errorf("response %s: %w", responseID, dal.ErrWriteConflict)
		}
		return nil, dal.Wrap("update response", err)
	}

	updated, err := decodeComment(out.Attributes)
	if err != nil {
		return nil, err
	}
	if idx >= len(updated.Responses) {
		return nil, dal.Wrap("update response", fmt.Errorf("response %d missing from returned item", idx))
	}
	r := updated.Responses[idx]
	return &r, nil
}

// DeleteResponse removes a response owned by responderID. The list compacts,
// so later responses shift down one position. The removal is conditioned on
// the element still holding responseID; a concurrent shift yields
// dal.ErrWriteConflict instead of removing a sibling.
func (s *Store) DeleteResponse(ctx context.Context, commentID, responseID, responderID string) error {
	c, idx, err := s.locateResponse(ctx, commentID, responseID)
	if err != nil {
		return err
	}
	if c.Responses[idx].ResponderID != responderID {
		return fmt.Errorf("response %s: %w", responseID, dal.ErrWrongUser)
	}

	elem := fmt.Sprintf("#r[%d]", idx)
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 commentKey(commentID),
		UpdateExpression:    aws.String("REMOVE " + elem),
		ConditionExpression: aws.String(elem + ".#rid = :rid"),
		ExpressionAttributeNames: map[string]string{
			"#r":   attrResponses,
			"#rid": attrResponseID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: responseID},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("response %s: %w", responseID, dal.ErrWriteConflict)
		}
		return dal.Wrap("delete response", err)
	}

	s.logger.InfoContext(ctx, "response deleted",
		"commentID", commentID,
		"responseID", responseID,
		"index", idx,
	)
	return nil
}

// locateResponse reads the comment and resolves responseID to its current index.
func (s *Store) locateResponse(ctx context.Context, commentID, responseID string) (*Comment, int, error) {
	c, err := s.FetchComment(ctx, commentID)
	if err != nil {
		return nil, -1, err
	}
	idx := c.responseIndex(responseID)
	if idx < 0 {
		return nil, -1, fmt.Errorf("response %s of comment %s: %w", responseID, commentID, dal.ErrNotFound)
	}
	return c, idx, nil
}
