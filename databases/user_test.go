package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/databases/mocks"
	"github.com/moyijulius/crime-report-platform/models"
)

func TestNewUserDatabase(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	userDB := databases.NewUserDatabase(db)

	assert.NotEmpty(t, userDB)
}

func TestUserDatabase_FindOne(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Username = "mocked-user"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "users").Return(collectionHelper)

	// Create new database with mocked Database interface
	userDba := databases.NewUserDatabase(dbHelper)

	// Call method with defined filter, that in our mocked function returns
	// mocked-error
	user, err := userDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, user)
	assert.EqualError(t, err, "mocked-error")

	// Now call the same function with different different filter for correct
	// result
	user, err = userDba.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, &models.User{Username: "mocked-user"}, user)
	assert.NoError(t, err)
}

func TestUserDatabase_Find(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorErr databases.CursorHelper
	var cursorCorrect databases.CursorHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorErr = &mocks.CursorHelper{}
	cursorCorrect = &mocks.CursorHelper{}

	cursorErr.(*mocks.CursorHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	cursorCorrect.(*mocks.CursorHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = []models.User{{Username: "mocked-user"}}
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": true}).
		Return(cursorErr, nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"error": false}).
		Return(cursorCorrect, nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"unreachable": true}).
		Return(nil, errors.New("server selection timeout"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	users, err := userDba.Find(context.Background(), bson.M{"error": true})
	assert.Empty(t, users)
	assert.EqualError(t, err, "mocked-error")

	users, err = userDba.Find(context.Background(), bson.M{"unreachable": true})
	assert.Empty(t, users)
	assert.EqualError(t, err, "server selection timeout")

	users, err = userDba.Find(context.Background(), bson.M{"error": false})
	assert.Equal(t, []models.User{{Username: "mocked-user"}}, users)
	assert.NoError(t, err)
}

func TestUserDatabase_InsertOneAssignsID(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("InsertOne", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return !u.ID.IsZero() && u.Email == "jane@example.com"
	})).Return(primitive.NewObjectID(), nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	id, err := databases.NewUserDatabase(dbHelper).InsertOne(context.Background(), models.User{Email: "jane@example.com"})

	assert.NoError(t, err)
	assert.False(t, id.IsZero())
	collectionHelper.AssertExpectations(t)
}

func TestUserDatabase_InsertOneDuplicate(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("InsertOne", mock.Anything, mock.Anything).Return(nil, databases.ErrDuplicate)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	id, err := databases.NewUserDatabase(dbHelper).InsertOne(context.Background(), models.User{Email: "jane@example.com"})

	assert.True(t, id.IsZero())
	assert.ErrorIs(t, err, databases.ErrDuplicate)
}

func TestUserDatabase_DeleteOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("DeleteOne", mock.Anything, bson.M{"_id": "gone"}).Return(int64(0), nil)
	collectionHelper.On("DeleteOne", mock.Anything, bson.M{"_id": "here"}).Return(int64(1), nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	assert.ErrorIs(t, userDba.DeleteOne(context.Background(), bson.M{"_id": "gone"}), databases.ErrNotFound)
	assert.NoError(t, userDba.DeleteOne(context.Background(), bson.M{"_id": "here"}))
}

func TestUserDatabase_FindOneAndUpdate(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Phone = "555-0100"
	})
	collectionHelper.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(srHelper)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	user, err := databases.NewUserDatabase(dbHelper).FindOneAndUpdate(context.Background(), bson.M{}, bson.M{"$set": bson.M{"phone": "555-0100"}})

	assert.NoError(t, err)
	assert.Equal(t, "555-0100", user.Phone)
}
