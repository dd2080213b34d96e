package databases

// go generate: mockery --name TokenDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moyijulius/crime-report-platform/models"
)

const tokenName = "revoked_tokens"

// TokenDatabase contains the methods to use with the revoked token database
type TokenDatabase interface {
	InsertOne(ctx context.Context, token models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

type tokenDatabase struct {
	db DatabaseHelper
}

// NewTokenDatabase initializes a new instance of token database with the provided db connection
func NewTokenDatabase(db DatabaseHelper) TokenDatabase {
	return &tokenDatabase{
		db: db,
	}
}

func (t *tokenDatabase) InsertOne(ctx context.Context, token models.RevokedToken) error {
	_, err := t.db.Collection(tokenName).InsertOne(ctx, token)
	return err
}

func (t *tokenDatabase) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := t.db.Collection(tokenName).CountDocuments(ctx, bson.M{"tokenHash": tokenHash})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureIndexes lets mongo drop revocations once the token would have expired anyway
func (t *tokenDatabase) EnsureIndexes(ctx context.Context) error {
	return t.db.Collection(tokenName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
}
