package fields

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMapJSONKeepsKinds(t *testing.T) {
	in := Map{
		"party":    Text("ACME Ltda"),
		"value":    Number(1500.5),
		"signed":   Boolean(true),
		"category": Select("services"),
		"start":    NewDate(time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)),
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(b), `"value":{"kind":"number","value":1500.5}`)
	require.Contains(t, string(b), `"start":{"kind":"date","value":"2024-03-01"}`)

	var out Map
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, len(in))
	for k, v := range in {
		require.Equal(t, v.Kind(), out[k].Kind(), k)
		require.Equal(t, v.String(), out[k].String(), k)
	}
}

func TestDecodeRejectsMismatchedValue(t *testing.T) {
	var m Map
	err := json.Unmarshal([]byte(`{"n":{"kind":"number","value":"ten"}}`), &m)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"x":{"kind":"color","value":"red"}}`), &m)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	v, err := Parse(KindNumber, "42")
	require.NoError(t, err)
	require.Equal(t, Number(42), v)

	_, err = Parse(KindDate, "01/03/2024")
	require.Error(t, err)

	_, err = Parse(KindBoolean, "maybe")
	require.Error(t, err)

	require.False(t, Kind("color").Valid())
	for _, k := range Kinds {
		require.True(t, k.Valid())
	}
}

func TestMapSQLAndBSONRoundTrip(t *testing.T) {
	in := Map{"restored_from": Number(3), "note": Text("x")}

	dv, err := in.Value()
	require.NoError(t, err)
	var scanned Map
	require.NoError(t, scanned.Scan(dv))
	require.Equal(t, in, scanned)

	var empty Map
	require.NoError(t, empty.Scan(nil))
	require.Empty(t, empty)

	b, err := bson.Marshal(struct {
		M Map `bson:"m"`
	}{M: in})
	require.NoError(t, err)
	var got struct {
		M Map `bson:"m"`
	}
	require.NoError(t, bson.Unmarshal(b, &got))
	require.Equal(t, in, got.M)
}

func TestTaggedNull(t *testing.T) {
	var tg Tagged
	require.NoError(t, json.Unmarshal([]byte(`null`), &tg))
	require.Nil(t, tg.Value)

	b, err := json.Marshal(Tagged{Value: Boolean(false)})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"boolean","value":false}`, string(b))
}
