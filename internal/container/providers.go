package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/autoapproval"
	"github.com/garyjia/claim-lifecycle/internal/application/compliance"
	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/application/service"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/identity"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/dynamo"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/garyjia/claim-lifecycle/internal/interfaces/http"
	"github.com/garyjia/claim-lifecycle/internal/report"
	"github.com/garyjia/claim-lifecycle/pkg/database"
)

// StoreBundle holds a claim store: its repositories, its transaction
// manager and the hooks the container needs to probe and release it.
type StoreBundle struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager

	ping  func(ctx context.Context) error
	close func() error
}

// ComplianceBundle holds the components that judge a claim.
type ComplianceBundle struct {
	Checker   *compliance.Checker
	Validator *compliance.Validator
	Evaluator *autoapproval.Evaluator
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Compliance *ComplianceBundle
	Identity   port.IdentityResolver
	Renderer   port.InvoiceRenderer
	Logger     *zap.Logger
}

// ProvideStore opens the store named by cfg.Database.Driver.
func ProvideStore(ctx context.Context, cfg *Config, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		return ProvideSQLiteStore(&cfg.Database, logger)
	case DriverDynamoDB:
		return ProvideDynamoStore(ctx, &cfg.DynamoDB, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// ProvideSQLiteStore opens the SQLite database, applies pending migrations
// and builds the SQL repositories over it.
func ProvideSQLiteStore(cfg *DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &StoreBundle{
		Repos: &RepositoryBundle{
			Claim:     repository.NewClaimRepository(db.DB, logger),
			Submitter: repository.NewSubmitterRepository(db.DB, logger),
			History:   repository.NewHistoryRepository(db.DB, logger),
			Document:  repository.NewDocumentRepository(db.DB, logger),
		},
		TxManager: sqlite.NewDB(db.DB, logger),
		ping:      db.PingContext,
		close:     db.Close,
	}, nil
}

// ProvideDynamoStore connects to DynamoDB and builds the item repositories.
// Tables are expected to exist already.
func ProvideDynamoStore(ctx context.Context, cfg *DynamoDBConfig, logger *zap.Logger) (*StoreBundle, error) {
	client, err := dynamo.NewClient(ctx, dynamo.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		TablePrefix:     cfg.TablePrefix,
	})
	if err != nil {
		return nil, err
	}
	return newDynamoStore(client, dynamo.TablesWithPrefix(cfg.TablePrefix), logger), nil
}

func newDynamoStore(api dynamo.API, tables dynamo.Tables, logger *zap.Logger) *StoreBundle {
	logger.Info("DynamoDB store configured", zap.String("claims_table", tables.Claims))
	return &StoreBundle{
		Repos: &RepositoryBundle{
			Claim:     dynamo.NewClaimRepository(api, tables, logger),
			Submitter: dynamo.NewSubmitterRepository(api, tables, logger),
			History:   dynamo.NewHistoryRepository(api, tables, logger),
			Document:  dynamo.NewDocumentRepository(api, tables, logger),
		},
		TxManager: dynamo.NewTxManager(api, logger),
	}
}

// ProvideCompliance builds the checker, validator and auto-approval evaluator
// over one shared set of limits. The budget ledger is permissive until a real one is wired.
func ProvideCompliance(limits policy.Limits, repos *RepositoryBundle, logger *zap.Logger) (*ComplianceBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy limits: %w", err)
	}

	adapter := &zapLoggerAdapter{logger: logger}
	return &ComplianceBundle{
		Checker:   compliance.NewChecker(limits),
		Validator: compliance.NewValidator(limits, repos.Submitter, adapter),
		Evaluator: autoapproval.NewEvaluator(limits, repos.Submitter, repos.Claim, autoapproval.UnlimitedBudget{}, adapter),
	}, nil
}

// ProvideIdentity creates the resolver that names the actor behind a transition.
func ProvideIdentity(cfg *AutoApprovalConfig) port.IdentityResolver {
	return identity.NewContextResolver(cfg.SystemActorID)
}

// ProvideServices creates all application services.
// Returns ServiceBundle containing all service implementations.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Compliance == nil {
		return nil, fmt.Errorf("compliance components are required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	renderer := deps.Renderer
	if renderer == nil {
		renderer = report.NewInvoiceRenderer(deps.Logger)
	}

	adapter := &zapLoggerAdapter{logger: deps.Logger}
	audit := service.NewAuditLog(deps.Repos.History, adapter)

	return &ServiceBundle{
		Audit: audit,
		Claims: service.NewClaimService(
			deps.Repos.Claim,
			deps.Repos.Submitter,
			deps.Repos.Document,
			deps.TxManager,
			deps.Compliance.Validator,
			deps.Compliance.Checker,
			audit,
			adapter,
		),
		Lifecycle: service.NewLifecycleService(
			deps.Repos.Claim,
			deps.TxManager,
			deps.Compliance.Checker,
			deps.Compliance.Evaluator,
			deps.Identity,
			audit,
			adapter,
		),
		Submitters: service.NewSubmitterService(deps.Repos.Submitter, adapter),
		Reports:    service.NewReportService(deps.Repos.Claim, deps.Repos.Submitter, renderer, adapter),
	}, nil
}

// ProvideHTTPServer creates the HTTP adapter over the services.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, logger *zap.Logger) (*httpserver.Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	return httpserver.NewServer(httpserver.ServerConfig{
		Host:                 cfg.Host,
		Port:                 cfg.Port,
		ReadTimeout:          cfg.ReadTimeout,
		WriteTimeout:         cfg.WriteTimeout,
		AutoApprovePerMinute: cfg.AutoApprovePerMinute,
		AutoApproveBurst:     cfg.AutoApproveBurst,
	}, httpserver.Services{
		Claims:     services.Claims,
		Lifecycle:  services.Lifecycle,
		Submitters: services.Submitters,
		Reports:    services.Reports,
	}, &zapLoggerAdapter{logger: logger}), nil
}
