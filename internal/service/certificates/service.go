// Package certificates handles gift certificates bought outside the cart
// flow and the one-shot redemption of any certificate.
package certificates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type Service struct {
	certs repository.Certificates
}

func New(certs repository.Certificates) *Service {
	return &Service{certs: certs}
}

// Purchase issues a certificate of one of the fixed denominations directly,
// without going through the cart.
func (s *Service) Purchase(ctx context.Context, ownerKey string, amount decimal.Decimal) (*domain.Certificate, error) {
	const op = "service.certificates.Purchase"

	if !domain.IsCertificateDenomination(amount) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	cert := domain.Certificate{
		ID:       uuid.New(),
		OwnerKey: ownerKey,
		Amount:   amount,
		Code:     domain.NewCertificateCode(),
	}

	if err := s.certs.CreateCertificate(ctx, &cert); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &cert, nil
}

// Get looks a certificate up by its code.
func (s *Service) Get(ctx context.Context, code string) (*domain.Certificate, error) {
	const op = "service.certificates.Get"

	cert, err := s.certs.CertificateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return cert, nil
}

// Redeem spends the certificate. The underlying update is conditional on
// is_used being false, so two concurrent redemptions of the same code
// cannot both succeed; the loser gets ErrAlreadyUsed.
func (s *Service) Redeem(ctx context.Context, code string) (*domain.Certificate, error) {
	const op = "service.certificates.Redeem"

	ok, err := s.certs.RedeemCertificate(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrAlreadyUsed)
	}

	return s.Get(ctx, code)
}
