package certificates

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type memCerts struct {
	byCode map[string]*domain.Certificate
}

func newMemCerts() *memCerts {
	return &memCerts{byCode: map[string]*domain.Certificate{}}
}

func (m *memCerts) CreateCertificate(_ context.Context, cert *domain.Certificate) error {
	if _, exists := m.byCode[cert.Code]; exists {
		return repository.ErrConflict
	}
	cp := *cert
	m.byCode[cert.Code] = &cp
	return nil
}

func (m *memCerts) CertificateByCode(_ context.Context, code string) (*domain.Certificate, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCerts) RedeemCertificate(_ context.Context, code string) (bool, error) {
	c, ok := m.byCode[code]
	if !ok {
		return false, repository.ErrNotFound
	}
	if c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	return true, nil
}

const owner = "user:7"

func TestPurchase(t *testing.T) {
	svc := New(newMemCerts())

	cert, err := svc.Purchase(context.Background(), owner, decimal.NewFromInt(1000))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(cert.Code, "GIFT-"))
	require.Equal(t, owner, cert.OwnerKey)
	require.False(t, cert.IsUsed)
}

func TestPurchaseRejectsUnknownDenomination(t *testing.T) {
	svc := New(newMemCerts())

	_, err := svc.Purchase(context.Background(), owner, decimal.NewFromInt(1234))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRedeemIsOneShot(t *testing.T) {
	store := newMemCerts()
	svc := New(store)

	cert, err := svc.Purchase(context.Background(), owner, decimal.NewFromInt(5000))
	require.NoError(t, err)

	redeemed, err := svc.Redeem(context.Background(), cert.Code)
	require.NoError(t, err)
	require.True(t, redeemed.IsUsed)

	_, err = svc.Redeem(context.Background(), cert.Code)
	require.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := New(newMemCerts())

	_, err := svc.Redeem(context.Background(), "GIFT-NOPE1234")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknownCode(t *testing.T) {
	svc := New(newMemCerts())

	_, err := svc.Get(context.Background(), "GIFT-MISSING1")
	require.ErrorIs(t, err, ErrNotFound)
}
