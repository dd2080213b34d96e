package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/databases/mocks"
	"github.com/moyijulius/crime-report-platform/models"
)

func TestReportDatabase_FindOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelperErr := &mocks.SingleResultHelper{}
	srHelperCorrect := &mocks.SingleResultHelper{}

	srHelperErr.On("Decode", mock.Anything).Return(databases.ErrNotFound)
	srHelperCorrect.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).ReferenceNumber = "REF-ABC123XYZ"
	})

	collectionHelper.On("FindOne", context.Background(), bson.M{"referenceNumber": "REF-MISSING00"}).Return(srHelperErr)
	collectionHelper.On("FindOne", context.Background(), bson.M{"referenceNumber": "REF-ABC123XYZ"}).Return(srHelperCorrect)
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	report, err := reportDba.FindOne(context.Background(), bson.M{"referenceNumber": "REF-MISSING00"})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, databases.ErrNotFound)

	report, err = reportDba.FindOne(context.Background(), bson.M{"referenceNumber": "REF-ABC123XYZ"})
	assert.NoError(t, err)
	assert.Equal(t, "REF-ABC123XYZ", report.ReferenceNumber)
}

func TestReportDatabase_Find(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Report)
		*arg = []models.Report{{CrimeType: "Theft"}, {CrimeType: "Assault"}}
	})
	collectionHelper.On("Find", mock.Anything, bson.M{}).Return(cursor, nil)
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reports, err := databases.NewReportDatabase(dbHelper).Find(context.Background(), bson.M{}, databases.NewestFirst(0, 1))

	assert.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestReportDatabase_InsertOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error")).Once()
	collectionHelper.On("InsertOne", mock.Anything, mock.Anything).Return("id", nil)
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	assert.EqualError(t, reportDba.InsertOne(context.Background(), models.Report{}), "mocked-error")
	assert.NoError(t, reportDba.InsertOne(context.Background(), models.Report{}))
}

func TestReportDatabase_EnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndexes", mock.Anything, mock.Anything).Return(nil)
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	assert.NoError(t, databases.NewReportDatabase(dbHelper).EnsureIndexes(context.Background()))
	collectionHelper.AssertNumberOfCalls(t, "CreateIndexes", 1)
}

func TestNewestFirstCapsPageSize(t *testing.T) {
	opts := databases.NewestFirst(500, 3)

	assert.Equal(t, int64(databases.MaxPageSize), *opts.Limit)
	assert.Equal(t, int64(2*databases.MaxPageSize), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, opts.Sort)
}
