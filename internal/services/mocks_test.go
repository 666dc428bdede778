package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/mpesa"
)

type GatewayMock struct {
	mock.Mock
	GatewayClient
}

func (m *GatewayMock) Push(ctx context.Context, cfg *models.MerchantConfig, req mpesa.PushRequest) (*mpesa.PushResponse, error) {
	args := m.Called(ctx, cfg, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mpesa.PushResponse), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
	TransactionLedger
}

func (m *LedgerMock) Insert(ctx context.Context, tx *models.PaymentTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *LedgerMock) FindByCheckoutRequestID(ctx context.Context, id string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentTransaction), args.Error(1)
}

func (m *LedgerMock) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus, resultCode, resultDesc string) (*models.PaymentTransaction, bool, error) {
	args := m.Called(ctx, id, status, resultCode, resultDesc)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.PaymentTransaction), args.Bool(1), args.Error(2)
}

func (m *LedgerMock) List(ctx context.Context, status *models.TransactionStatus, start, end *time.Time) ([]models.PaymentTransaction, error) {
	args := m.Called(ctx, status, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PaymentTransaction), args.Error(1)
}

type OrderStoreMock struct {
	mock.Mock
	OrderStore
}

func (m *OrderStoreMock) MarkProcessing(ctx context.Context, orderRef string) error {
	args := m.Called(ctx, orderRef)
	return args.Error(0)
}
