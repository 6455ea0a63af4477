package appwrite

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestAuthFlowRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Header.Get("X-Appwrite-Project"), "proj")
		w.Header().Set("X-Fallback-Cookies", `{"a_session_proj":"tok"}`)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"$id":"s1","userId":"u1"}`)
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	flow := &AuthFlow{
		logger:       testLogger(),
		in:           bufio.NewReader(strings.NewReader("ada@example.com\n")),
		out:          &out,
		readPassword: func() ([]byte, error) { return []byte("pw"), nil },
	}

	result, err := flow.Run(context.Background(), srv.URL+"/v1", "proj")
	assert.Equal(t, err, nil)
	assert.Equal(t, result.Session, "tok")
	assert.Equal(t, result.Email, "ada@example.com")
	assert.Equal(t, strings.Contains(out.String(), "Signed in."), true)
}
