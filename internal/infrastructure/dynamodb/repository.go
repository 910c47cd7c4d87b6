package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
)

type Client struct {
	db        *awsv2dynamodb.Client
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	client := awsv2dynamodb.NewFromConfig(cfg)
	return &Client{db: client, tableName: tableName}, nil
}

func orgPK(orgID string) string   { return "ORG#" + orgID }
func permissionsSK() string       { return "PERMISSIONS" }
func userPK(userID string) string { return "USER#" + userID }
func profileSK() string           { return "PROFILE" }
func auditSKPrefix() string       { return "AUDIT#" }

// auditTimeLayout is fixed width so sort keys order chronologically.
const auditTimeLayout = "2006-01-02T15:04:05.000000000Z"

func auditSK(entry domain.AuditEntry) string {
	return auditSKPrefix() + entry.CreatedAt.UTC().Format(auditTimeLayout) + "#" + entry.ID
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

type PermissionRepository struct{ client *Client }

type UserRepository struct{ client *Client }

type AuditRepository struct{ client *Client }

func NewPermissionRepository(client *Client) *PermissionRepository {
	return &PermissionRepository{client: client}
}

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

func NewAuditRepository(client *Client) *AuditRepository {
	return &AuditRepository{client: client}
}

// permissionItem keeps the document as a JSON string so the stored shape is
// the snake_case wire format.
type permissionItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	EntityType     string `dynamodbav:"EntityType"`
	OrganizationID string `dynamodbav:"OrganizationID"`
	Document       string `dynamodbav:"Document"`
	Version        int64  `dynamodbav:"Version"`
	UpdatedAt      string `dynamodbav:"UpdatedAt"`
	UpdatedBy      string `dynamodbav:"UpdatedBy"`
}

func toPermissionItem(record domain.PermissionRecord) (permissionItem, error) {
	doc, err := json.Marshal(record.Permissions)
	if err != nil {
		return permissionItem{}, err
	}
	return permissionItem{
		PK:             orgPK(record.OrganizationID),
		SK:             permissionsSK(),
		EntityType:     "ORG_PERMISSIONS",
		OrganizationID: record.OrganizationID,
		Document:       string(doc),
		Version:        record.Version,
		UpdatedAt:      record.UpdatedAt.Format(time.RFC3339),
		UpdatedBy:      record.UpdatedBy,
	}, nil
}

func fromPermissionItem(item permissionItem) (domain.PermissionRecord, error) {
	var doc permissions.OrganizationPermissions
	if err := json.Unmarshal([]byte(item.Document), &doc); err != nil {
		return domain.PermissionRecord{}, err
	}
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
	return domain.PermissionRecord{
		OrganizationID: item.OrganizationID,
		Permissions:    doc,
		Version:        item.Version,
		UpdatedAt:      updatedAt,
		UpdatedBy:      item.UpdatedBy,
	}, nil
}

func (r *PermissionRepository) Get(ctx context.Context, orgID string) (domain.PermissionRecord, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetPermissions", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: orgPK(orgID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: permissionsSK()},
			},
			ConsistentRead: aws.Bool(true),
		})
		return e
	})
	if err != nil {
		return domain.PermissionRecord{}, err
	}
	if out.Item == nil {
		return domain.PermissionRecord{}, domain.ErrNotFound
	}
	var item permissionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.PermissionRecord{}, err
	}
	return fromPermissionItem(item)
}

func (r *PermissionRepository) Save(ctx context.Context, record domain.PermissionRecord, expectedVersion int64) error {
	item, err := toPermissionItem(record)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	input := &awsv2dynamodb.PutItemInput{
		TableName: aws.String(r.client.tableName),
		Item:      av,
	}
	if expectedVersion == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("Version = :expected")
		input.ExpressionAttributeValues = map[string]awsv2types.AttributeValue{
			":expected": &awsv2types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		}
	}
	return xray.Capture(ctx, "DynamoDB.PutPermissions", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, input)
		if isConditionalCheckFailure(err) {
			return domain.ErrVersionConflict
		}
		return err
	})
}

type userItem struct {
	ID             string `dynamodbav:"ID"`
	OrganizationID string `dynamodbav:"OrganizationID"`
	Email          string `dynamodbav:"Email"`
	Name           string `dynamodbav:"Name"`
	Role           string `dynamodbav:"Role"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
	UpdatedAt      string `dynamodbav:"UpdatedAt"`
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetUser", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: profileSK()},
			},
		})
		return e
	})
	if err != nil {
		return domain.User{}, err
	}
	if out.Item == nil {
		return domain.User{}, domain.ErrNotFound
	}
	var raw userItem
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return domain.User{}, err
	}
	createdAt, _ := time.Parse(time.RFC3339, raw.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, raw.UpdatedAt)
	return domain.User{
		ID:             raw.ID,
		OrganizationID: raw.OrganizationID,
		Email:          raw.Email,
		Name:           raw.Name,
		Role:           permissions.UserRole(raw.Role),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role permissions.UserRole) error {
	return xray.Capture(ctx, "DynamoDB.UpdateUserRole", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: profileSK()},
			},
			UpdateExpression: aws.String("SET #r = :r, UpdatedAt = :u"),
			ExpressionAttributeNames: map[string]string{
				"#r": "Role",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":r": &awsv2types.AttributeValueMemberS{Value: string(role)},
				":u": &awsv2types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}

type auditItem struct {
	PK             string            `dynamodbav:"PK"`
	SK             string            `dynamodbav:"SK"`
	EntityType     string            `dynamodbav:"EntityType"`
	ID             string            `dynamodbav:"ID"`
	OrganizationID string            `dynamodbav:"OrganizationID"`
	ActorID        string            `dynamodbav:"ActorID"`
	Action         string            `dynamodbav:"Action"`
	Target         string            `dynamodbav:"Target"`
	Details        map[string]string `dynamodbav:"Details,omitempty"`
	CreatedAt      string            `dynamodbav:"CreatedAt"`
}

func toAuditItem(entry domain.AuditEntry) auditItem {
	return auditItem{
		PK:             orgPK(entry.OrganizationID),
		SK:             auditSK(entry),
		EntityType:     "AUDIT",
		ID:             entry.ID,
		OrganizationID: entry.OrganizationID,
		ActorID:        entry.ActorID,
		Action:         string(entry.Action),
		Target:         entry.Target,
		Details:        entry.Details,
		CreatedAt:      entry.CreatedAt.UTC().Format(auditTimeLayout),
	}
}

func fromAuditItem(item auditItem) domain.AuditEntry {
	createdAt, _ := time.Parse(auditTimeLayout, item.CreatedAt)
	return domain.AuditEntry{
		ID:             item.ID,
		OrganizationID: item.OrganizationID,
		ActorID:        item.ActorID,
		Action:         domain.AuditAction(item.Action),
		Target:         item.Target,
		Details:        item.Details,
		CreatedAt:      createdAt,
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	av, err := attributevalue.MarshalMap(toAuditItem(entry))
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutAuditEntry", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		})
		return err
	})
}

func (r *AuditRepository) ListByOrganization(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryAuditEntries", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: orgPK(orgID)},
				":sk": &awsv2types.AttributeValueMemberS{Value: auditSKPrefix()},
			},
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int32(int32(limit)),
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditEntry, 0, len(out.Items))
	for _, av := range out.Items {
		var item auditItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, err
		}
		entries = append(entries, fromAuditItem(item))
	}
	return entries, nil
}
