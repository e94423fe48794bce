package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type holdingDoc struct {
	Symbol   string          `bson:"symbol"`
	Quantity decimal.Decimal `bson:"quantity"`
}

func TestDecimalCodec(t *testing.T) {
	reg := Registry()

	t.Run("stored as decimal128", func(t *testing.T) {
		data, err := bson.MarshalWithRegistry(reg, holdingDoc{Symbol: "AAPL", Quantity: decimal.RequireFromString("12.3456789")})
		require.NoError(t, err)

		raw := bson.Raw(data)
		assert.Equal(t, bson.TypeDecimal128, raw.Lookup("quantity").Type)

		var out holdingDoc
		require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
		assert.True(t, decimal.RequireFromString("12.3456789").Equal(out.Quantity))
	})

	t.Run("accepts legacy encodings", func(t *testing.T) {
		cases := map[string]interface{}{
			"double": 2.5,
			"int32":  int32(3),
			"int64":  int64(4),
			"string": "5.25",
		}
		want := map[string]string{"double": "2.5", "int32": "3", "int64": "4", "string": "5.25"}
		for name, v := range cases {
			data, err := bson.Marshal(bson.M{"symbol": "X", "quantity": v})
			require.NoError(t, err)

			var out holdingDoc
			require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out), name)
			assert.Equal(t, want[name], out.Quantity.String(), name)
		}
	})

	t.Run("null decodes to zero", func(t *testing.T) {
		data, err := bson.Marshal(bson.M{"symbol": "X", "quantity": primitive.Null{}})
		require.NoError(t, err)
		var out holdingDoc
		require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
		assert.True(t, out.Quantity.IsZero())
	})

	t.Run("rejects booleans", func(t *testing.T) {
		data, err := bson.Marshal(bson.M{"quantity": true})
		require.NoError(t, err)
		var out holdingDoc
		assert.Error(t, bson.UnmarshalWithRegistry(reg, data, &out))
	})
}

func TestUUIDCodec(t *testing.T) {
	reg := Registry()
	type sessionDoc struct {
		ID uuid.UUID `bson:"_id"`
	}
	id := uuid.New()

	data, err := bson.MarshalWithRegistry(reg, sessionDoc{ID: id})
	require.NoError(t, err)
	subtype, bin := bson.Raw(data).Lookup("_id").Binary()
	assert.Equal(t, byte(0x04), subtype)
	assert.Equal(t, id[:], bin)

	var out sessionDoc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.Equal(t, id, out.ID)

	legacy, err := bson.Marshal(bson.M{"_id": id.String()})
	require.NoError(t, err)
	require.NoError(t, bson.UnmarshalWithRegistry(reg, legacy, &out))
	assert.Equal(t, id, out.ID)
}

func TestIndexModels(t *testing.T) {
	models := IndexModels()
	assert.Len(t, models, 4)
	require.Len(t, models[TargetsCollection], 1)
	assert.True(t, *models[TargetsCollection][0].Options.Unique)
	require.Len(t, models[VaRReportCollection], 2)
	assert.Equal(t, int32(90*24*3600), *models[VaRReportCollection][1].Options.ExpireAfterSeconds)
}
