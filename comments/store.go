// Package comments stores comment threads in DynamoDB and guards every
// mutation with ownership checks and version-token conditional writes.
//
// Each comment is one item keyed by comment_id. Responses are embedded in the
// item as an ordered list and are resolved from response_id to a list index on
// every targeted mutation. Version checks are evaluated by DynamoDB as part of
// the write itself; nothing here reads a version and then writes blindly.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/artcatalog/dal"
)

// DefaultTable is the comment table used when none is configured.
const DefaultTable = "comments-responses"

// DynamoDBAPI is the subset of the DynamoDB client used by Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store reads and writes comment documents.
type Store struct {
	client    DynamoDBAPI
	table     string
	itemIndex string

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock used for datetime attributes.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator for comment, response and version ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithItemIndex names a global secondary index partitioned on item_id.
// When set, item-only lookups use Query instead of Scan.
func WithItemIndex(index string) Option {
	return func(s *Store) {
		s.itemIndex = index
	}
}

// New creates a Store for table. An empty table uses DefaultTable.
func New(client DynamoDBAPI, table string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("comments: client is required")
	}
	if table == "" {
		table = DefaultTable
	}

	s := &Store{
		client: client,
		table:  table,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Table returns the table name the store writes to.
func (s *Store) Table() string {
	return s.table
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func commentKey(commentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCommentID: &types.AttributeValueMemberS{Value: commentID},
	}
}

// PostComment creates a new comment with an empty response list. Creation is
// unconditional; a fresh comment_id never collides.
func (s *Store) PostComment(ctx context.Context, itemID, commenterID, text string) (*Comment, error) {
	if itemID == "" || commenterID == "" {
		return nil, dal.Invalid("item_id and commenter_id are required")
	}

	c := &Comment{
		CommentID:   s.newID(),
		ItemID:      itemID,
		CommenterID: commenterID,
		CommentText: text,
		Datetime:    s.timestamp(),
		VersionID:   s.newID(),
		Responses:   []Response{},
	}

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return nil, dal.Wrap("encode comment", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return nil, dal.Wrap("post comment", err)
	}

	s.logger.InfoContext(ctx, "comment posted",
		"commentID", c.CommentID,
		"itemID", itemID,
	)
	return c, nil
}

// FetchComment returns the comment with commentID, or dal.ErrNotFound.
func (s *Store) FetchComment(ctx context.Context, commentID string) (*Comment, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            commentKey(commentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, dal.Wrap("fetch comment", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, dal.ErrNotFound)
	}
	return decodeComment(out.Item)
}

// UpdateComment replaces the text of a comment owned by commenterID. The write
// succeeds only if the stored version still equals oldVersionID; otherwise it
// fails with dal.ErrWriteConflict and nothing changes. Ownership is checked
// before the version.
func (s *Store) UpdateComment(ctx context.Context, commentID, oldVersionID, commenterID, newText string) (*Comment, error) {
	current, err := s.FetchComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if current.CommenterID != commenterID {
		return nil, fmt.Errorf("comment %s: %w", commentID, dal.ErrWrongUser)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 commentKey(commentID),
		UpdateExpression:    aws.String("SET #text = :text, #dt = :dt, #ver = :ver"),
		ConditionExpression: aws.String("#ver = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#text": attrCommentText,
			"#dt":   attrDatetime,
			"#ver":  attrVersionID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":text":     &types.AttributeValueMemberS{Value: newText},
			":dt":       &types.AttributeValueMemberS{Value: s.timestamp()},
			":ver":      &types.AttributeValueMemberS{Value: s.newID()},
			":expected": &types.AttributeValueMemberS{Value: oldVersionID},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			s.logger.InfoContext(ctx, "comment update rejected on stale version",
				"commentID", commentID,
				"expectedVersion", oldVersionID,
			)
			return nil, fmt.Errorf("comment %s: %w", commentID, dal.ErrWriteConflict)
		}
		return nil, dal.Wrap("update comment", err)
	}
	return decodeComment(out.Attributes)
}

// DeleteComment removes a comment owned by commenterID along with all of its responses.
func (s *Store) DeleteComment(ctx context.Context, commentID, commenterID string) error {
	current, err := s.FetchComment(ctx, commentID)
	if err != nil {
		return err
	}
	if current.CommenterID != commenterID {
		return fmt.Errorf("comment %s: %w", commentID, dal.ErrWrongUser)
	}

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       commentKey(commentID),
	}); err != nil {
		return dal.Wrap("delete comment", err)
	}

	s.logger.InfoContext(ctx, "comment deleted",
		"commentID", commentID,
		"responsesDeleted", len(current.Responses),
	)
	return nil
}

func decodeComment(item map[string]types.AttributeValue) (*Comment, error) {
	var c Comment
	if err := attributevalue.UnmarshalMap(item, &c); err != nil {
		return nil, dal.Wrap("decode comment", err)
	}
	if c.Responses == nil {
		c.Responses = []Response{}
	}
	return &c, nil
}

func isConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
