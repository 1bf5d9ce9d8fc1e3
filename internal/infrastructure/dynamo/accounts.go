package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-credential-api/internal/domain"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
// PK: email.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// PutIfAbsent inserts the account only if no account exists for the email.
// Returns domain.ErrConflict when one does: registration finalization races
// resolve on this condition, not on a prior read.
func (r *AccountRepo) PutIfAbsent(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("account exists for %s: %w", a.Email, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIdentity returns the account whose name, surname and date of birth
// all match exactly. Used by email recovery, where the caller does not know
// the email. Scan is acceptable here: the endpoint is rate-limited and rare.
func (r *AccountRepo) FindByIdentity(ctx context.Context, name, surname, dateOfBirth string) (*domain.Account, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("#n = :n AND surname = :s AND date_of_birth = :d"),
			ExpressionAttributeNames: map[string]string{
				"#n": "name", // reserved word in DynamoDB expressions
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":n": &types.AttributeValueMemberS{Value: name},
				":s": &types.AttributeValueMemberS{Value: surname},
				":d": &types.AttributeValueMemberS{Value: dateOfBirth},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		if len(out.Items) > 0 {
			var a domain.Account
			if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
				return nil, err
			}
			return &a, nil
		}
		if out.LastEvaluatedKey == nil {
			return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
		}
		startKey = out.LastEvaluatedKey
	}
}

// UpdatePassword replaces the stored password digest.
func (r *AccountRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(email)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("account not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}
