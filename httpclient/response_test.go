package httpclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/courier/httpclient/transport"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestResponse_Decode(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		want    user
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given generic JSON object, then converted to struct",
			body:    map[string]any{"id": float64(42), "name": "Alice"},
			want:    user{ID: 42, Name: "Alice"},
			wantErr: assert.NoError,
		},
		{
			name:    "given nil body, then target untouched",
			body:    nil,
			want:    user{},
			wantErr: assert.NoError,
		},
		{
			name:    "given mismatched shape, then error",
			body:    []any{"not", "a", "user"},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got user
			err := (&Response{Body: tt.body}).Decode(&got)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResponse_Accessors(t *testing.T) {
	r := &Response{StatusCode: http.StatusCreated, RawBody: []byte(`{"id":1}`)}
	assert.True(t, r.IsSuccess())
	assert.Equal(t, `{"id":1}`, r.String())

	r = &Response{StatusCode: http.StatusBadGateway, Recovered: true}
	assert.False(t, r.IsSuccess())
}

func TestResponseAs(t *testing.T) {
	mt := transport.NewMockTransport().
		StubPath("/users/42", http.StatusOK, `{"id":42,"name":"Alice"}`).
		StubPath("/users/0", http.StatusNotFound, `{"error":"not found"}`)
	client := newTestClient(t, mt)

	got, err := ResponseAs[user](context.Background(), client.Request().Path("users", "42").Get())
	require.NoError(t, err)
	assert.Equal(t, user{ID: 42, Name: "Alice"}, got)

	got, err = ResponseAs[user](context.Background(), client.Request().Path("users", "0").Get())
	require.Error(t, err)
	assert.Equal(t, user{}, got)
}

func TestCall_Into(t *testing.T) {
	mt := transport.NewMockTransport().StubResponse(http.StatusOK, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`)
	client := newTestClient(t, mt)

	var users []user
	require.NoError(t, client.Request().Path("users").Get().Into(context.Background(), &users))
	assert.Equal(t, []user{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, users)
}
