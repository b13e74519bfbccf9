package testutil

import (
	"context"
	"time"

	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/domain/ledger"
	"github.com/chronobill/chronobill/internal/domain/plan"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/chronobill/chronobill/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PlanRepo    plan.Repository
	InvoiceRepo invoice.Repository
	LedgerRepo  ledger.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	directory *InMemoryCustomerStore
	publisher *InMemoryEventPublisher
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := &config.Configuration{
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Scheduler: config.SchedulerConfig{
			MaxWorkers: 4,
			BatchSize:  100,
			RunTimeout: time.Minute,
		},
	}

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:    NewInMemoryPlanStore(),
		InvoiceRepo: NewInMemoryInvoiceStore(),
		LedgerRepo:  NewInMemoryLedgerStore(),
	}
	s.directory = NewInMemoryCustomerStore()
	s.publisher = NewInMemoryEventPublisher()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.LedgerRepo.(*InMemoryLedgerStore).Clear()
	s.directory.Clear()
	s.publisher.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDirectory returns the in-memory customer directory
func (s *BaseServiceTestSuite) GetDirectory() *InMemoryCustomerStore {
	return s.directory
}

// GetPublisher returns the capturing event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID generates a new UUID for testing
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
