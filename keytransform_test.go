package alba_test

import (
	"fmt"
	"testing"

	"github.com/Watson1978/alba"
	"github.com/stretchr/testify/assert"
)

func TestTransformKey(t *testing.T) {
	cases := []struct {
		key    string
		format alba.KeyFormat
		want   string
	}{
		{"user_name", alba.KeyNone, "user_name"},
		{"user_name", alba.KeyCamel, "UserName"},
		{"user_name", alba.KeyLowerCamel, "userName"},
		{"user_name", alba.KeySnake, "user_name"},
		{"user_name", alba.KeyDash, "user-name"},
		{"userName", alba.KeySnake, "user_name"},
		{"userName", alba.KeyDash, "user-name"},
		{"UserName", alba.KeyLowerCamel, "userName"},
		{"user-name", alba.KeySnake, "user_name"},
		{"user_id", alba.KeyCamel, "UserId"},
		{"userID", alba.KeySnake, "user_id"},
		{"userID", alba.KeyCamel, "UserID"},
		{"id", alba.KeyCamel, "Id"},
		{"id", alba.KeyLowerCamel, "id"},
		{"", alba.KeySnake, ""},
		{"address1", alba.KeyCamel, "Address1"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q/%d", tc.key, tc.format), func(t *testing.T) {
			assert.Equal(t, tc.want, alba.TransformKey(tc.key, tc.format))
		})
	}
}

// Applying a strategy to its own output must be a no-op, for every strategy.
func TestTransformKey_Idempotent(t *testing.T) {
	keys := []string{"user_name", "userName", "UserName", "user-name", "userID", "id", "a_b_c", "Address1Line"}
	formats := []alba.KeyFormat{alba.KeyNone, alba.KeyCamel, alba.KeyLowerCamel, alba.KeySnake, alba.KeyDash}
	for _, f := range formats {
		for _, k := range keys {
			once := alba.TransformKey(k, f)
			twice := alba.TransformKey(once, f)
			assert.Equal(t, once, twice, "format %d key %q", f, k)
		}
	}
}

func TestTransformKey_UnknownStrategyIsIdentity(t *testing.T) {
	assert.Equal(t, "some_key", alba.TransformKey("some_key", alba.KeyFormat(99)))
}
