package redact

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"admin", "ad***"},
		{"ab", "***"},
		{"", "***"},
		{"관리자계정", "관리***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, UserID(tt.in))
		})
	}
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Bearer [REDACTED_TOKEN]", Authorization("Bearer abc.def.ghi"))
	require.Equal(t, "[REDACTED_TOKEN]", Authorization("abc"))
	require.Empty(t, Authorization(""))
}

func TestHeader_DoesNotMutateSource(t *testing.T) {
	t.Parallel()

	src := http.Header{}
	src.Set("Authorization", "Bearer secret")
	src.Set("Cookie", "sid=1")
	src.Set("X-Request-Id", "rid")

	out := Header(src)

	require.Equal(t, "Bearer [REDACTED_TOKEN]", out.Get("Authorization"))
	require.Equal(t, Token(), out.Get("Cookie"))
	require.Equal(t, "rid", out.Get("X-Request-Id"))
	require.Equal(t, "Bearer secret", src.Get("Authorization"))
}

func TestHeader_Nil(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Header(nil))
}
