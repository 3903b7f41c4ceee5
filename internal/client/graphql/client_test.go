package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestPostMessageSendsMutation(t *testing.T) {
	req := require.New(t)

	var got requestBody
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("application/json", r.Header.Get("Content-Type"))
		req.NoError(json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":{"postMessage":{"id":"1","role":"assistant","content":"hi there"}}}`))
	})

	reply, err := New(srv.URL).PostMessage(context.Background(), "hello")
	req.NoError(err)
	req.Equal("1", reply.ID)
	req.Equal("assistant", reply.Role)
	req.Equal("hi there", reply.Content)

	req.Equal(PostMessageMutation, got.Query)
	req.Equal("hello", got.Variables["content"])
}

func TestPostMessageNonSuccessStatus(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"data":{"postMessage":{"id":"1","role":"assistant","content":"ignored"}}}`))
	})

	_, err := New(srv.URL).PostMessage(context.Background(), "hello")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.ErrorIs(t, err, ErrTransport)
}

func TestPostMessageApplicationError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"x"}]}`))
	})

	_, err := New(srv.URL).PostMessage(context.Background(), "hello")

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Errors, 1)
	require.Equal(t, "x", appErr.Errors[0].Message)
	require.True(t, IsApplicationError(err))
}

func TestPostMessageEmptyErrorsArrayStillFails(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[],"data":{"postMessage":{"id":"1","role":"assistant","content":"hi"}}}`))
	})

	_, err := New(srv.URL).PostMessage(context.Background(), "hello")
	require.True(t, IsApplicationError(err))
}

func TestPostMessageMalformedReply(t *testing.T) {
	cases := map[string]string{
		"no data":        `{}`,
		"null data":      `{"data":null}`,
		"no postMessage": `{"data":{}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := New(srv.URL).PostMessage(context.Background(), "hello")
			require.ErrorIs(t, err, ErrMalformedReply)
		})
	}
}

func TestPostMessageUndecodableBody(t *testing.T) {
	cases := map[string]string{
		"html":          `<html>oops</html>`,
		"trailing data": `{"data":{"postMessage":{"id":"1","role":"assistant","content":"hi"}}}<html>`,
		"null body":     `null`,
		"array body":    `[]`,
		"empty body":    ``,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := New(srv.URL).PostMessage(context.Background(), "hello")
			require.ErrorIs(t, err, ErrTransport)
			require.NotErrorIs(t, err, ErrMalformedReply)
			require.False(t, IsApplicationError(err))
		})
	}
}

func TestPostMessageLenientID(t *testing.T) {
	cases := map[string]struct {
		body string
		id   string
	}{
		"numeric id": {`{"data":{"postMessage":{"id":1,"role":"assistant","content":"hi"}}}`, "1"},
		"missing id": {`{"data":{"postMessage":{"role":"assistant","content":"hi"}}}`, ""},
		"null id":    {`{"data":{"postMessage":{"id":null,"role":"assistant","content":"hi"}}}`, ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})

			reply, err := New(srv.URL).PostMessage(context.Background(), "hello")
			require.NoError(t, err)
			require.Equal(t, tc.id, reply.ID)
			require.Equal(t, "assistant", reply.Role)
			require.Equal(t, "hi", reply.Content)
		})
	}
}

func TestPostMessageBodyTooLarge(t *testing.T) {
	valid := []byte(`{"data":{"postMessage":{"id":"1","role":"assistant","content":"hi"}}}`)
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(valid)
		w.Write(bytes.Repeat([]byte(" "), maxBodySize))
	})

	_, err := New(srv.URL).PostMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrResponseTooLarge)
	require.ErrorIs(t, err, ErrTransport)
}

func TestPostMessageTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := New(srv.URL, WithTimeout(20*time.Millisecond)).PostMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrTransport)
	require.False(t, errors.Is(err, ErrMalformedReply))
}
