package repository

import (
	"github.com/chronobill/chronobill/internal/domain/customer"
	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/domain/ledger"
	"github.com/chronobill/chronobill/internal/domain/plan"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
	postgresRepo "github.com/chronobill/chronobill/internal/repository/postgres"
)

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return postgresRepo.NewLedgerRepository(db, logger)
}

func NewCustomerDirectory(db *postgres.DB, logger *logger.Logger) customer.Directory {
	return postgresRepo.NewCustomerDirectory(db, logger)
}
