package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type headerVerifier struct{}

func (headerVerifier) Verify(_ context.Context, r *http.Request, _ []byte) error {
	if r.Header.Get("X-Signature") != "ok" {
		return errors.New("bad signature")
	}
	return nil
}

func TestMiddleware_AllowsAndRestoresBody(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/test", headerVerifier{}, NewTTLReplayProtector(time.Minute))
	require.NotNil(t, sub)
	sub.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/test/ping", bytes.NewBufferString("hello"))
	req.Header.Set("X-Signature", "ok")
	req.Header.Set(headerID, "evt-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", rr.Body.String())
}

func TestMiddleware_RejectsBadSignature(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/test", headerVerifier{}, NewTTLReplayProtector(time.Minute))
	sub.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/test/ping", bytes.NewBufferString("{}"))
	req.Header.Set(headerID, "evt-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_DetectsReplay(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/test", headerVerifier{}, NewTTLReplayProtector(time.Minute))
	sub.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/test/ping", bytes.NewBufferString("{}"))
		req.Header.Set("X-Signature", "ok")
		req.Header.Set(headerID, "evt-dup")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, send().Code)
	require.Equal(t, http.StatusConflict, send().Code)
}

func TestMiddleware_RejectsOversizedBody(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/test", headerVerifier{}, NewTTLReplayProtector(time.Minute), WithMaxBodyBytes(4))
	sub.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/test/ping", bytes.NewBufferString("too large"))
	req.Header.Set("X-Signature", "ok")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func signPayload(t *testing.T, secret []byte, id, ts string, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s.", id, ts)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifier(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	encoded := "whsec_" + base64.StdEncoding.EncodeToString(secret)

	v, err := NewHMACVerifier(encoded)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"email.delivered"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set(headerID, "msg_1")
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerSignature, signPayload(t, secret, "msg_1", ts, body))
	require.NoError(t, v.Verify(context.Background(), req, body))

	// Tampered body fails.
	require.Error(t, v.Verify(context.Background(), req, []byte(`{"type":"email.bounced"}`)))

	// Stale timestamp fails.
	stale := strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)
	req.Header.Set(headerTimestamp, stale)
	req.Header.Set(headerSignature, signPayload(t, secret, "msg_1", stale, body))
	require.Error(t, v.Verify(context.Background(), req, body))
}
