package service

import (
	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/domain/customer"
	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/domain/ledger"
	"github.com/chronobill/chronobill/internal/domain/plan"
	"github.com/chronobill/chronobill/internal/idempotency"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
	"github.com/chronobill/chronobill/internal/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     *postgres.DB

	// Repositories
	PlanRepo    plan.Repository
	InvoiceRepo invoice.Repository
	LedgerRepo  ledger.Repository

	// Collaborators
	CustomerDirectory customer.Directory
	EventPublisher    publisher.EventPublisher

	IdempotencyGen *idempotency.Generator
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db *postgres.DB,
	planRepo plan.Repository,
	invoiceRepo invoice.Repository,
	ledgerRepo ledger.Repository,
	customerDirectory customer.Directory,
	eventPublisher publisher.EventPublisher,
	idempotencyGen *idempotency.Generator,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		PlanRepo:          planRepo,
		InvoiceRepo:       invoiceRepo,
		LedgerRepo:        ledgerRepo,
		CustomerDirectory: customerDirectory,
		EventPublisher:    eventPublisher,
		IdempotencyGen:    idempotencyGen,
	}
}
