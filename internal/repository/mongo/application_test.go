package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIDString(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.Equal(t, oid.Hex(), IDString(oid))
	assert.Equal(t, "app-1", IDString("app-1"))
	assert.Equal(t, "", IDString(nil))
}

func TestIDCandidates(t *testing.T) {
	oid := primitive.NewObjectID()

	got := idCandidates(oid.Hex())
	require.Len(t, got, 2)
	assert.Equal(t, oid, got[1])

	assert.Len(t, idCandidates("not-an-object-id"), 1)
}

func TestPlainMap(t *testing.T) {
	oid := primitive.NewObjectID()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got := plainMap(bson.M{
		"skills": primitive.A{"Node", "Postgres"},
		"owner":  oid,
		"since":  primitive.NewDateTimeFromTime(at),
		"education": bson.D{
			{Key: "degree", Value: "BSc"},
		},
	})

	assert.Equal(t, []any{"Node", "Postgres"}, got["skills"])
	assert.Equal(t, oid.Hex(), got["owner"])
	assert.Equal(t, at, got["since"])
	assert.Equal(t, map[string]any{"degree": "BSc"}, got["education"])

	assert.Empty(t, plainMap(nil))
}

func TestStringSlice(t *testing.T) {
	assert.Equal(t, []string{"Go", "SQL"}, stringSlice(primitive.A{"Go", 3, "SQL"}))
	assert.Nil(t, stringSlice("Go"))
}
