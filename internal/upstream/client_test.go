package upstream

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagolins/pixbank-be/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, "api-key", "api-secret", logging.NewNop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func expectedDigest(serialized string) string {
	mac := hmac.New(sha512.New, []byte("api-secret"))
	mac.Write([]byte(serialized))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGetTransactionsSignsQueryString(t *testing.T) {
	var gotURL, gotAPIKey, gotAccount string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotAPIKey = r.Header.Get("B8-API-KEY")
		gotAccount = r.Header.Get("ACCOUNT-NUMBER")
		_ = json.NewEncoder(w).Encode(TransactionsResponse{Success: true})
	})

	_, err := c.GetTransactions(context.Background(), "12345", TransactionFilter{Side: "in"})
	require.NoError(t, err)

	assert.Equal(t, "api-key", gotAPIKey)
	assert.Equal(t, "12345", gotAccount)
	// Signed set is {side, timestamp} sorted; the wire form must match the
	// signed form byte for byte.
	want := "/getTransactions?side=in&timestamp=1700000000&signature=" + expectedDigest("side=in&timestamp=1700000000")
	assert.Equal(t, want, gotURL)
}

func TestGetTransactionsOmitsZeroFilterFields(t *testing.T) {
	var gotURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_ = json.NewEncoder(w).Encode(TransactionsResponse{Success: true})
	})

	_, err := c.GetTransactions(context.Background(), "12345", TransactionFilter{})
	require.NoError(t, err)
	assert.NotContains(t, gotURL, "startDate")
	assert.NotContains(t, gotURL, "limit")
	assert.Contains(t, gotURL, "timestamp=1700000000")
}

func TestGetAccountDataMergesBodyAndQueryForSigning(t *testing.T) {
	var gotQuery, gotSignature string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		gotSignature, _ = body["signature"].(string)
		_ = json.NewEncoder(w).Encode(AccountDataResponse{Success: true})
	})

	_, err := c.GetAccountData(context.Background(), "master-1", "52998224725")
	require.NoError(t, err)

	assert.Equal(t, "document=52998224725", gotQuery)
	assert.Equal(t, expectedDigest("document=52998224725&timestamp=1700000000"), gotSignature)
}

func TestSendPixBodyIsSigned(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_ = json.NewEncoder(w).Encode(TransferResponse{Success: true, ID: "tx-1"})
	})

	resp, err := c.SendPix(context.Background(), "12345", "pix@example.com", decimal.NewFromInt(150), "rent")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	assert.Equal(t, "rent", body["description"])
	dest, ok := body["destination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pix@example.com", dest["key"])
	sig, _ := body["signature"].(string)
	assert.Len(t, sig, 128)
	uniqueID, _ := body["uniqueId"].(string)
	assert.LessOrEqual(t, len(uniqueID), 30)
}

func TestCreateUserAccountOmitsAccountHeader(t *testing.T) {
	var hasAccountHeader bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAccountHeader = r.Header["Account-Number"]
		_ = json.NewEncoder(w).Encode(GenericResponse{Success: true})
	})

	_, err := c.CreateUserAccount(context.Background(), "52998224725", "a@b.com", "Ana", "+5511999990000")
	require.NoError(t, err)
	assert.False(t, hasAccountHeader)
}

func TestGeneratePixKeyMapsFrontendTypes(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_ = json.NewEncoder(w).Encode(GenericResponse{Success: true})
	})

	_, err := c.GeneratePixKey(context.Background(), "12345", "aleatoria", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "evp", body["keyType"])
	_, hasKey := body["key"]
	assert.False(t, hasKey, "evp keys must not carry a key value")
}

func TestExecuteNon200BecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid key"})
	})

	_, err := c.GetAccountBalance(context.Background(), "12345")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "invalid key", apiErr.Message)
}

func TestExecuteBadJSONBecomesTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	})

	_, err := c.GetAccountBalance(context.Background(), "12345")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestSuccessFalsePassesThroughAsValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AccountDataResponse{Success: false, Message: "master account misconfigured"})
	})

	resp, err := c.GetAccountData(context.Background(), "master-1", "52998224725")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "master account misconfigured", resp.Message)
}
