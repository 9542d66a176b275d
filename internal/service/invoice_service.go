package service

import (
	"context"

	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"go.uber.org/zap"
)

// InvoiceService records one invoice per settled payment. Rendering the
// document is left to whoever consumes the record.
type InvoiceService struct {
	uow repository.UnitOfWork
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(uow repository.UnitOfWork) *InvoiceService {
	return &InvoiceService{uow: uow}
}

// Generate returns the invoice of paymentID, creating it on first call
func (s *InvoiceService) Generate(ctx context.Context, payable domain.PayableRef, paymentID string) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := s.uow.Execute(ctx, func(ctx context.Context, tx repository.Tx) error {
		payment, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.IsSuccess() || payment.Payable != payable {
			return domain.ErrPaymentNotSettled
		}
		invoice, err = tx.Invoices().Create(ctx, domain.NewInvoice(payment))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Event("invoice.generated",
		zap.String("invoice_number", invoice.Number),
		zap.String("payment_id", paymentID),
	)
	return invoice, nil
}
