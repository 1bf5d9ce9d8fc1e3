package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-credential-api/internal/domain"
)

// PendingLinkRepo manages one pending-link table. Registration and password
// reset tables share a shape and a repo, keyed by email.
type PendingLinkRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPendingLinkRepo(client *dynamodb.Client, tableName string) *PendingLinkRepo {
	return &PendingLinkRepo{client: client, tableName: tableName}
}

// PutIfAbsent inserts the record only if no record exists for the email,
// enforcing the one-live-link-per-email invariant at the store, not in
// application code. Returns domain.ErrConflict on an existing record.
func (r *PendingLinkRepo) PutIfAbsent(ctx context.Context, p *domain.PendingLink) error {
	return r.put(ctx, p, true)
}

// Replace overwrites whatever record exists for the email in a single write.
// Used on reissue after a stale record is detected: a lone PutItem is atomic,
// so no interleaved verify can observe "neither old nor new record" the way a
// delete-then-insert pair permits.
func (r *PendingLinkRepo) Replace(ctx context.Context, p *domain.PendingLink) error {
	return r.put(ctx, p, false)
}

func (r *PendingLinkRepo) put(ctx context.Context, p *domain.PendingLink, strict bool) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal pending link: %w", err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	if strict {
		input.ConditionExpression = aws.String("attribute_not_exists(email)")
	}
	_, err = r.client.PutItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("pending link exists for %s: %w", p.Email, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *PendingLinkRepo) GetByEmail(ctx context.Context, email string) (*domain.PendingLink, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("email", email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("pending link not found: %w", domain.ErrNotFound)
	}
	var p domain.PendingLink
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByLink returns the record for email only when its stored link equals the
// given link exactly. No partial matching: an encoding or base-URL mismatch
// must surface as not-found, never as a fuzzy hit.
func (r *PendingLinkRepo) GetByLink(ctx context.Context, link, email string) (*domain.PendingLink, error) {
	p, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p.Link != link {
		return nil, fmt.Errorf("pending link does not match: %w", domain.ErrNotFound)
	}
	return p, nil
}

// Delete removes the record for email. Deleting an absent record is not an
// error: request-triggered cleanup races the reaper, last delete wins.
func (r *PendingLinkRepo) Delete(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	return err
}

// SweepExpired deletes every record with expires_at < now and returns the
// count. Idempotent: a second sweep with no writes in between deletes nothing.
func (r *PendingLinkRepo) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(r.tableName),
			FilterExpression:     aws.String("expires_at < :now"),
			ProjectionExpression: aws.String("email"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return deleted, err
		}
		n, err := r.batchDelete(ctx, out.Items)
		deleted += n
		if err != nil {
			return deleted, err
		}
		if out.LastEvaluatedKey == nil {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchDelete removes the given items in BatchWriteItem chunks of 25 (the
// DynamoDB maximum per request).
func (r *PendingLinkRepo) batchDelete(ctx context.Context, items []map[string]types.AttributeValue) (int, error) {
	const chunkSize = 25
	deleted := 0
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: item},
			})
		}
		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
		})
		if err != nil {
			return deleted, err
		}
		deleted += end - start
	}
	return deleted, nil
}
