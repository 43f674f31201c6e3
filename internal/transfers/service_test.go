package transfers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

type stubGateway struct {
	pixResp  upstream.TransferResponse
	tedResp  upstream.TransferResponse
	keyResp  upstream.GenericResponse
	keysResp upstream.PixKeysResponse
	qrResp   upstream.GenericResponse
	err      error

	pixCalls    int
	tedCalls    int
	keyCalls    int
	qrCalls     int
	lastKeyType string
	lastKey     string
	lastQrKey   string
}

func (g *stubGateway) SendPix(_ context.Context, _, _ string, _ decimal.Decimal, _ string) (upstream.TransferResponse, error) {
	g.pixCalls++
	return g.pixResp, g.err
}

func (g *stubGateway) SendTed(_ context.Context, _ string, _ upstream.TedDestination, _ decimal.Decimal) (upstream.TransferResponse, error) {
	g.tedCalls++
	return g.tedResp, g.err
}

func (g *stubGateway) GeneratePixKey(_ context.Context, _, keyType, key string) (upstream.GenericResponse, error) {
	g.keyCalls++
	g.lastKeyType = keyType
	g.lastKey = key
	return g.keyResp, g.err
}

func (g *stubGateway) GetAccountPixKeys(_ context.Context, _ string) (upstream.PixKeysResponse, error) {
	return g.keysResp, g.err
}

func (g *stubGateway) GenerateDepositQrCode(_ context.Context, _, key string, _ decimal.Decimal, _ string) (upstream.GenericResponse, error) {
	g.qrCalls++
	g.lastQrKey = key
	return g.qrResp, g.err
}

func newTestService(gw *stubGateway) *Service {
	return NewService(gw, logging.NewNop())
}

func TestSendPixRejectsNonPositiveAmounts(t *testing.T) {
	gw := &stubGateway{}
	svc := newTestService(gw)

	_, err := svc.SendPix(context.Background(), "123456", "key@x.com", decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SendPix(context.Background(), "123456", "key@x.com", decimal.NewFromInt(-5), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, gw.pixCalls)
}

func TestSendPixRequiresKey(t *testing.T) {
	gw := &stubGateway{}
	svc := newTestService(gw)

	_, err := svc.SendPix(context.Background(), "123456", "  ", decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Zero(t, gw.pixCalls)
}

func TestSendPixSurfacesUpstreamRejection(t *testing.T) {
	gw := &stubGateway{pixResp: upstream.TransferResponse{Success: false, Message: "insufficient funds"}}
	svc := newTestService(gw)

	_, err := svc.SendPix(context.Background(), "123456", "key@x.com", decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestSendPixHappyPath(t *testing.T) {
	gw := &stubGateway{pixResp: upstream.TransferResponse{Success: true, ID: "tr-1"}}
	svc := newTestService(gw)

	resp, err := svc.SendPix(context.Background(), "123456", "key@x.com", decimal.NewFromInt(10), "lunch")
	require.NoError(t, err)
	assert.Equal(t, "tr-1", resp.ID)
}

func TestSendTedValidatesDestination(t *testing.T) {
	gw := &stubGateway{}
	svc := newTestService(gw)

	_, err := svc.SendTed(context.Background(), "123456", TedInput{
		Amount:      decimal.NewFromInt(100),
		Destination: upstream.TedDestination{Name: "Ana", BankNumber: "341"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document")
	assert.Zero(t, gw.tedCalls)
}

func TestGeneratePixKeyValidation(t *testing.T) {
	gw := &stubGateway{keyResp: upstream.GenericResponse{Success: true}}
	svc := newTestService(gw)

	_, err := svc.GeneratePixKey(context.Background(), "123456", PixKeyInput{KeyType: "telefone"})
	assert.ErrorIs(t, err, ErrInvalidKeyType)

	_, err = svc.GeneratePixKey(context.Background(), "123456", PixKeyInput{KeyType: "email"})
	assert.ErrorIs(t, err, ErrKeyValueRequired)

	_, err = svc.GeneratePixKey(context.Background(), "123456", PixKeyInput{KeyType: "aleatoria"})
	require.NoError(t, err)
	assert.Equal(t, "aleatoria", gw.lastKeyType)
	assert.Empty(t, gw.lastKey)
}

func TestDepositQrCodePrefersRandomKey(t *testing.T) {
	gw := &stubGateway{
		keysResp: upstream.PixKeysResponse{Success: true, Data: []upstream.PixKey{
			{Key: "529.982.247-25", KeyType: "cpf", Status: "active"},
			{Key: "rand-uuid-key", KeyType: "evp", Status: "active"},
		}},
		qrResp: upstream.GenericResponse{Success: true, Data: map[string]any{"qrcode": "base64"}},
	}
	svc := newTestService(gw)

	qr, err := svc.DepositQrCode(context.Background(), "123456", decimal.NewFromInt(50), "dep-1")
	require.NoError(t, err)
	assert.Equal(t, "rand-uuid-key", qr.Key)
	assert.Equal(t, "rand-uuid-key", gw.lastQrKey)
	assert.Equal(t, "base64", qr.Payload["qrcode"])
}

func TestDepositQrCodeFallsBackToFirstActiveKey(t *testing.T) {
	gw := &stubGateway{
		keysResp: upstream.PixKeysResponse{Success: true, Data: []upstream.PixKey{
			{Key: "old-key", KeyType: "email", Status: "inactive"},
			{Key: "ana@example.com", KeyType: "email", Status: "active"},
		}},
		qrResp: upstream.GenericResponse{Success: true},
	}
	svc := newTestService(gw)

	qr, err := svc.DepositQrCode(context.Background(), "123456", decimal.NewFromInt(50), "dep-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", qr.Key)
}

func TestDepositQrCodeFailsWithoutActiveKeys(t *testing.T) {
	gw := &stubGateway{
		keysResp: upstream.PixKeysResponse{Success: true, Data: []upstream.PixKey{
			{Key: "old-key", KeyType: "email", Status: "inactive"},
		}},
	}
	svc := newTestService(gw)

	_, err := svc.DepositQrCode(context.Background(), "123456", decimal.NewFromInt(50), "dep-1")
	assert.ErrorIs(t, err, ErrNoDepositKey)
	assert.Zero(t, gw.qrCalls)
}
