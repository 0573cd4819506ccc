package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/analytics"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/commands"
	activitycmd "github.com/goliatone/go-contractor/internal/commands/activity"
	blogcmd "github.com/goliatone/go-contractor/internal/commands/blog"
	exportscmd "github.com/goliatone/go-contractor/internal/commands/exports"
	invoicescmd "github.com/goliatone/go-contractor/internal/commands/invoices"
	jobscmd "github.com/goliatone/go-contractor/internal/commands/jobs"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/exports"
	contractorhttp "github.com/goliatone/go-contractor/internal/http"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/jobs"
	"github.com/goliatone/go-contractor/internal/links"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/logging/console"
	"github.com/goliatone/go-contractor/internal/logging/gologger"
	"github.com/goliatone/go-contractor/internal/markdown"
	"github.com/goliatone/go-contractor/internal/objectstore"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/runtimeconfig"
	"github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/internal/storage"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/activity/usersink"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	repocache "github.com/goliatone/go-repository-cache/cache"
	urlkit "github.com/goliatone/go-urlkit"
	"github.com/uptrace/bun"
)

// CommandRegistry receives every command handler the container builds.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar = commands.CronRegistrar

// CommandSubscription is returned by dispatchers so handlers can be released.
type CommandSubscription interface {
	Unsubscribe()
}

// CommandDispatcher subscribes handlers to a go-command style dispatcher.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// Container wires module dependencies.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger
	clock          func() time.Time

	bunDB         *bun.DB
	ownsDB        bool
	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	tenantRepo   tenancy.Repository
	clientRepo   clients.Repository
	productRepo  products.Repository
	projectRepo  projects.Repository
	invoiceRepo  invoices.Repository
	sequencer    invoices.Sequencer
	expenseRepo  expenses.Repository
	activityRepo activitylog.Repository
	postRepo     blog.Repository

	extraHooks   activity.Hooks
	activitySink interfaces.ActivitySink
	emitter      *activity.Emitter
	broker       *realtime.Broker
	scheduler    interfaces.Scheduler
	objectStore  interfaces.ObjectStore
	routeManager *urlkit.RouteManager
	linkResolver *links.Resolver
	renderer     *markdown.Renderer
	contentFS    fs.FS
	auditLog     jobs.AuditRecorder

	tenantSvc    tenancy.Service
	clientSvc    clients.Service
	productSvc   products.Service
	projectSvc   projects.Service
	invoiceSvc   invoices.Service
	expenseSvc   expenses.Service
	activitySvc  activitylog.Service
	analyticsSvc analytics.Service
	exportSvc    exports.Service
	importSvc    imports.Service
	blogSvc      blog.Service
	worker       *jobs.Worker

	sweepHandler   *invoicescmd.SweepOverdueHandler
	pruneHandler   *activitycmd.PruneActivityHandler
	processHandler *jobscmd.ProcessJobsHandler
	exportHandler  *exportscmd.GenerateExportHandler
	importHandler  *blogcmd.ImportPostsHandler
	auditHandlers  jobscmd.AuditHandlers

	commandRegistry   CommandRegistry
	cronRegistrar     CronRegistrar
	commandDispatcher CommandDispatcher
	subscriptions     []CommandSubscription

	api *contractorhttp.API
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies an open database. The container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default cache provider.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObjectStore replaces the store built from the exports config.
func WithObjectStore(store interfaces.ObjectStore) Option {
	return func(c *Container) {
		c.objectStore = store
	}
}

// WithScheduler replaces the scheduler selected by the scheduling feature.
func WithScheduler(s interfaces.Scheduler) Option {
	return func(c *Container) {
		c.scheduler = s
	}
}

// WithActivityHooks appends hooks to the activity emitter.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(c *Container) {
		c.extraHooks = append(c.extraHooks, hooks...)
	}
}

// WithActivitySink forwards activity to a go-users compatible sink.
func WithActivitySink(sink interfaces.ActivitySink) Option {
	return func(c *Container) {
		c.activitySink = sink
	}
}

// WithContentFS sets the filesystem blog posts are imported from. Defaults
// to the configured blog content directory.
func WithContentFS(fsys fs.FS) Option {
	return func(c *Container) {
		c.contentFS = fsys
	}
}

func WithAuditRecorder(recorder jobs.AuditRecorder) Option {
	return func(c *Container) {
		c.auditLog = recorder
	}
}

func WithCommandRegistry(registry CommandRegistry) Option {
	return func(c *Container) {
		c.commandRegistry = registry
	}
}

func WithCronRegistrar(registrar CronRegistrar) Option {
	return func(c *Container) {
		c.cronRegistrar = registrar
	}
}

func WithCommandDispatcher(dispatcher CommandDispatcher) Option {
	return func(c *Container) {
		c.commandDispatcher = dispatcher
	}
}

// NewContainer validates cfg and builds every service it enables.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	c := &Container{
		Config:   cfg,
		clock:    time.Now,
		cacheTTL: cacheTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	ctx := context.Background()
	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "")

	if err := c.configureStorage(ctx); err != nil {
		return nil, err
	}
	if err := c.configureCacheDefaults(); err != nil {
		c.closeOwnedDB()
		return nil, err
	}
	c.configureRepositories()
	c.configureActivity()
	c.configureScheduler()
	c.configureNavigation()
	if err := c.configureObjectStore(ctx); err != nil {
		c.closeOwnedDB()
		return nil, err
	}
	c.configureServices()
	c.configureCommands()
	if err := c.registerCommands(); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.configureAPI()

	c.logger.Info("container.ready",
		"storage", storage.NormalizeDriver(cfg.Storage.Driver),
		"blog", cfg.Features.Blog,
		"realtime", cfg.Features.Realtime,
		"exports", cfg.Features.Exports,
		"imports", cfg.Features.Imports,
		"scheduling", cfg.Features.Scheduling,
	)
	return c, nil
}

func (c *Container) moduleLogger(module string) interfaces.Logger {
	return logging.ModuleLogger(c.loggerProvider, module)
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: configure go-logger: %w", err)
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureStorage(ctx context.Context) error {
	storageCfg := c.Config.Storage
	driver := storage.NormalizeDriver(storageCfg.Driver)
	logger := c.moduleLogger(logging.StorageModule)

	if c.bunDB == nil && driver != storage.DriverMemory {
		db, err := storage.Open(ctx, storage.Config{
			Driver:       storageCfg.Driver,
			DSN:          storageCfg.DSN,
			MaxOpenConns: storageCfg.MaxOpenConns,
		})
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.bunDB == nil {
		logger.Debug("storage.configured", "driver", storage.DriverMemory)
		return nil
	}

	if storageCfg.AutoMigrate {
		if err := storage.Migrate(ctx, c.bunDB); err != nil {
			c.closeOwnedDB()
			return err
		}
	}
	logger.Info("storage.configured", "driver", driver, "migrated", storageCfg.AutoMigrate)
	return nil
}

func (c *Container) configureCacheDefaults() error {
	if !c.Config.Cache.Enabled {
		return nil
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			return fmt.Errorf("di: configure cache: %w", err)
		}
		c.cacheService = service
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
	return nil
}

func (c *Container) configureRepositories() {
	if c.bunDB == nil {
		c.tenantRepo = tenancy.NewMemoryRepository()
		c.clientRepo = clients.NewMemoryRepository()
		c.productRepo = products.NewMemoryRepository()
		c.projectRepo = projects.NewMemoryRepository()
		c.invoiceRepo = invoices.NewMemoryRepository()
		c.sequencer = invoices.NewMemorySequencer()
		c.expenseRepo = expenses.NewMemoryRepository()
		c.activityRepo = activitylog.NewMemoryRepository()
		c.postRepo = blog.NewMemoryRepository()
		return
	}

	if c.cacheService != nil {
		c.tenantRepo = tenancy.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		c.productRepo = products.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	} else {
		c.tenantRepo = tenancy.NewBunRepository(c.bunDB)
		c.productRepo = products.NewBunRepository(c.bunDB)
	}
	c.clientRepo = clients.NewBunRepository(c.bunDB)
	c.projectRepo = projects.NewBunRepository(c.bunDB)
	c.invoiceRepo = invoices.NewBunRepository(c.bunDB)
	c.sequencer = invoices.NewBunSequencer(c.bunDB)
	c.expenseRepo = expenses.NewBunRepository(c.bunDB)
	c.activityRepo = activitylog.NewBunRepository(c.bunDB)
	c.postRepo = blog.NewBunRepository(c.bunDB)
}

func (c *Container) configureActivity() {
	features := c.Config.Features
	hooks := activity.Hooks{}
	if features.Activity {
		hooks = append(hooks, activitylog.Hook{Repo: c.activityRepo})
	}
	if features.Realtime {
		c.broker = realtime.NewBroker(
			realtime.WithBufferSize(c.Config.Realtime.BufferSize),
			realtime.WithLogger(c.moduleLogger(logging.RealtimeModule)),
		)
		hooks = append(hooks, realtime.Hook{Broker: c.broker})
	}
	if c.activitySink != nil {
		hooks = append(hooks, usersink.Hook{Sink: c.activitySink})
	}
	hooks = append(hooks, c.extraHooks...)

	c.emitter = activity.NewEmitter(hooks, activity.Config{
		Enabled: len(hooks) > 0,
		Channel: "contractor",
	})
	c.moduleLogger(logging.ActivityModule).Debug("activity.configured", "hooks", len(hooks))
}

func (c *Container) configureScheduler() {
	logger := c.moduleLogger(logging.SchedulerModule)
	if c.scheduler != nil {
		logger.Info("scheduler.configured", "provider", "custom")
		return
	}
	if c.Config.Features.Scheduling {
		c.scheduler = scheduler.NewInMemory(scheduler.WithClock(c.clock))
		logger.Info("scheduler.configured", "provider", "in-memory")
		return
	}
	c.scheduler = scheduler.NewNoOp()
	logger.Info("scheduler.configured", "provider", "noop")
}

func (c *Container) configureNavigation() {
	linksCfg := c.Config.Links
	if linksCfg.RouteConfig != nil {
		c.routeManager = urlkit.NewRouteManager(linksCfg.RouteConfig)
		c.linkResolver = links.NewResolverWithManager(c.routeManager)
		return
	}
	c.linkResolver = links.NewResolver(links.Config{
		BaseURL:     linksCfg.BaseURL,
		BlogPath:    linksCfg.BlogPath,
		InvoicePath: linksCfg.InvoicePath,
	})
	c.routeManager = c.linkResolver.Manager()
}

func (c *Container) configureObjectStore(ctx context.Context) error {
	logger := c.moduleLogger(logging.ExportsModule)
	if c.objectStore != nil {
		return nil
	}
	if !c.Config.Features.Exports {
		c.objectStore = objectstore.NewMemoryStore()
		return nil
	}
	exportCfg := c.Config.Exports
	store, err := objectstore.New(ctx, objectstore.Config{
		Provider:  exportCfg.Provider,
		Dir:       exportCfg.Dir,
		Bucket:    exportCfg.Bucket,
		Prefix:    exportCfg.Prefix,
		Region:    exportCfg.Region,
		Endpoint:  exportCfg.Endpoint,
		AccessKey: exportCfg.AccessKey,
		SecretKey: exportCfg.SecretKey,
		UseSSL:    exportCfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("di: configure object store: %w", err)
	}
	c.objectStore = store
	logger.Info("exports.store.configured", "provider", exportCfg.Provider, "bucket", exportCfg.Bucket)
	return nil
}

func (c *Container) configureServices() {
	cfg := c.Config

	c.tenantSvc = tenancy.NewService(c.tenantRepo,
		tenancy.WithClock(c.clock),
		tenancy.WithDefaults(tenancy.Defaults{
			Currency:          cfg.Invoices.Currency,
			InvoicePrefix:     cfg.Invoices.NumberPrefix,
			PaymentTermsDays:  cfg.Invoices.PaymentTermsDays,
			DefaultTaxRateBps: cfg.Invoices.DefaultTaxRateBps,
		}),
	)
	c.clientSvc = clients.NewService(c.clientRepo,
		clients.WithClock(c.clock),
		clients.WithActivityEmitter(c.emitter),
		clients.WithLogger(c.moduleLogger(logging.ClientsModule)),
	)
	c.productSvc = products.NewService(c.productRepo,
		products.WithClock(c.clock),
		products.WithActivityEmitter(c.emitter),
		products.WithLogger(c.moduleLogger(logging.ProductsModule)),
	)
	c.projectSvc = projects.NewService(c.projectRepo, c.clientRepo,
		projects.WithClock(c.clock),
		projects.WithActivityEmitter(c.emitter),
		projects.WithLogger(c.moduleLogger(logging.ProjectsModule)),
	)
	c.invoiceSvc = invoices.NewService(c.invoiceRepo, c.sequencer, c.tenantRepo, c.clientRepo,
		invoices.WithProducts(c.productRepo),
		invoices.WithProjects(c.projectRepo),
		invoices.WithScheduler(c.scheduler),
		invoices.WithClock(c.clock),
		invoices.WithActivityEmitter(c.emitter),
		invoices.WithLogger(c.moduleLogger(logging.InvoicesModule)),
		invoices.WithDefaults(invoices.Defaults{
			NumberPrefix:     cfg.Invoices.NumberPrefix,
			PaymentTermsDays: cfg.Invoices.PaymentTermsDays,
			TaxRateBps:       cfg.Invoices.DefaultTaxRateBps,
			Currency:         cfg.Invoices.Currency,
		}),
	)
	c.expenseSvc = expenses.NewService(c.expenseRepo, c.projectRepo,
		expenses.WithReceiptStore(c.objectStore),
		expenses.WithCurrency(cfg.Invoices.Currency),
		expenses.WithClock(c.clock),
		expenses.WithActivityEmitter(c.emitter),
		expenses.WithLogger(c.moduleLogger(logging.ExpensesModule)),
	)
	c.activitySvc = activitylog.NewService(c.activityRepo,
		activitylog.WithClock(c.clock),
		activitylog.WithLogger(c.moduleLogger(logging.ActivityModule)),
	)
	c.analyticsSvc = analytics.NewService(c.invoiceRepo, c.expenseRepo, c.projectRepo, c.clientRepo,
		analytics.WithLogger(c.moduleLogger(logging.AnalyticsModule)),
	)

	if cfg.Features.Exports {
		c.exportSvc = exports.NewService(exports.Sources{
			Invoices: c.invoiceRepo,
			Expenses: c.expenseRepo,
			Clients:  c.clientRepo,
			Activity: c.activityRepo,
		}, c.objectStore,
			exports.WithClock(c.clock),
			exports.WithActivityEmitter(c.emitter),
			exports.WithLogger(c.moduleLogger(logging.ExportsModule)),
		)
	}
	if cfg.Features.Imports {
		c.importSvc = imports.NewService(c.clientSvc, c.productSvc,
			imports.WithClock(c.clock),
			imports.WithActivityEmitter(c.emitter),
			imports.WithLogger(c.moduleLogger(logging.ImportsModule)),
		)
	}

	c.renderer = markdown.NewRenderer(markdown.Options{})
	if cfg.Features.Blog {
		if c.contentFS == nil {
			c.contentFS = os.DirFS(cfg.Blog.ContentDir)
		}
		loader := markdown.NewLoader(c.contentFS, markdown.LoaderConfig{
			Pattern:   cfg.Blog.Pattern,
			Recursive: cfg.Blog.Recursive,
		})
		blogOpts := []blog.ServiceOption{
			blog.WithClock(c.clock),
			blog.WithRenderer(c.renderer),
			blog.WithURLResolver(c.linkResolver),
			blog.WithContentLoader(loader),
			blog.WithActivityEmitter(c.emitter),
			blog.WithLogger(c.moduleLogger(logging.BlogModule)),
		}
		if cfg.Features.Scheduling {
			blogOpts = append(blogOpts, blog.WithScheduler(c.scheduler))
		}
		c.blogSvc = blog.NewService(c.postRepo, blogOpts...)
	}

	jobsLogger := c.moduleLogger(logging.JobsModule)
	if c.auditLog == nil {
		c.auditLog = jobs.NewLoggerAuditRecorder(jobsLogger, jobs.DefaultAuditCapacity)
	}
	var posts jobs.PostPublisher
	if c.blogSvc != nil {
		posts = c.blogSvc
	}
	c.worker = jobs.NewWorker(c.scheduler, posts, c.invoiceSvc,
		jobs.WithAuditRecorder(c.auditLog),
		jobs.WithActivityEmitter(c.emitter),
		jobs.WithLogger(jobsLogger),
		jobs.WithClock(c.clock),
	)
}

func (c *Container) configureCommands() {
	cfg := c.Config

	c.sweepHandler = invoicescmd.NewSweepOverdueHandler(c.tenantRepo, c.invoiceSvc, commands.CommandLogger(c.loggerProvider, "invoices"),
		invoicescmd.SweepWithCronExpression(cfg.Commands.OverdueCron),
		invoicescmd.SweepWithClock(c.clock),
	)
	c.pruneHandler = activitycmd.NewPruneActivityHandler(c.activitySvc, commands.CommandLogger(c.loggerProvider, "activity"),
		activitycmd.PruneWithCronExpression(cfg.Commands.RetentionCron),
		activitycmd.PruneWithRetentionDays(cfg.Activity.RetentionDays),
	)
	jobsLogger := commands.CommandLogger(c.loggerProvider, "jobs")
	c.processHandler = jobscmd.NewProcessJobsHandler(c.worker, jobsLogger,
		jobscmd.ProcessWithCronExpression(cfg.Commands.JobsCron),
	)
	c.auditHandlers = jobscmd.NewAuditHandlers(c.auditLog, jobsLogger, 0)

	if c.exportSvc != nil {
		c.exportHandler = exportscmd.NewGenerateExportHandler(c.exportSvc, commands.CommandLogger(c.loggerProvider, "exports"))
	}
	if c.blogSvc != nil {
		c.importHandler = blogcmd.NewImportPostsHandler(c.blogSvc, commands.CommandLogger(c.loggerProvider, "blog"), blogcmd.ImportWithDirectory("."))
	}
}

func (c *Container) handlers() []any {
	handlers := []any{
		c.sweepHandler,
		c.pruneHandler,
		c.processHandler,
		c.auditHandlers.Export,
		c.auditHandlers.Cleanup,
	}
	if c.exportHandler != nil {
		handlers = append(handlers, c.exportHandler)
	}
	if c.importHandler != nil {
		handlers = append(handlers, c.importHandler)
	}
	return handlers
}

func (c *Container) registerCommands() error {
	logger := c.moduleLogger(logging.CommandsModule)

	if c.commandRegistry != nil {
		for _, handler := range c.handlers() {
			if err := c.commandRegistry.RegisterCommand(handler); err != nil {
				return fmt.Errorf("di: register command %T: %w", handler, err)
			}
		}
	}
	if c.commandDispatcher != nil {
		for _, handler := range c.handlers() {
			sub, err := c.commandDispatcher.RegisterCommand(handler)
			if err != nil {
				return fmt.Errorf("di: subscribe command %T: %w", handler, err)
			}
			if sub != nil {
				c.subscriptions = append(c.subscriptions, sub)
			}
		}
	}

	if !c.Config.Commands.CronEnabled || c.cronRegistrar == nil {
		return nil
	}
	var errs []error
	errs = append(errs,
		commands.RegisterCron(c.cronRegistrar, c.sweepHandler.CronOptions(), c.sweepHandler, invoicescmd.SweepOverdueCommand{}),
		commands.RegisterCron(c.cronRegistrar, c.pruneHandler.CronOptions(), c.pruneHandler, activitycmd.PruneActivityCommand{}),
		commands.RegisterCron(c.cronRegistrar, c.processHandler.CronOptions(), c.processHandler, jobscmd.ProcessJobsCommand{}),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("di: register cron: %w", err)
	}
	logger.Info("commands.cron.registered",
		"overdue", c.sweepHandler.CronOptions().Expression,
		"retention", c.pruneHandler.CronOptions().Expression,
		"jobs", c.processHandler.CronOptions().Expression,
	)
	return nil
}

func (c *Container) configureAPI() {
	opts := []contractorhttp.Option{
		contractorhttp.WithBasePath(c.Config.HTTP.BasePath),
		contractorhttp.WithLogger(c.moduleLogger(logging.HTTPModule)),
		contractorhttp.WithClock(c.clock),
		contractorhttp.WithTenantService(c.tenantSvc),
		contractorhttp.WithClientService(c.clientSvc),
		contractorhttp.WithProductService(c.productSvc),
		contractorhttp.WithProjectService(c.projectSvc),
		contractorhttp.WithInvoiceService(c.invoiceSvc),
		contractorhttp.WithExpenseService(c.expenseSvc),
		contractorhttp.WithActivityService(c.activitySvc),
		contractorhttp.WithAnalyticsService(c.analyticsSvc),
		contractorhttp.WithRenderer(c.renderer),
	}
	if c.exportSvc != nil {
		opts = append(opts, contractorhttp.WithExportService(c.exportSvc))
	}
	if c.importSvc != nil {
		opts = append(opts, contractorhttp.WithImportService(c.importSvc))
	}
	if c.broker != nil {
		opts = append(opts, contractorhttp.WithBroker(c.broker))
	}
	if c.blogSvc != nil {
		opts = append(opts, contractorhttp.WithBlogService(c.blogSvc))
	}
	c.api = contractorhttp.NewAPI(opts...)
}

// Close releases dispatcher subscriptions, the realtime broker and any
// database the container opened itself.
func (c *Container) Close(context.Context) error {
	for _, sub := range c.subscriptions {
		sub.Unsubscribe()
	}
	c.subscriptions = nil
	if c.broker != nil {
		c.broker.Close()
	}
	return c.closeOwnedDB()
}

func (c *Container) closeOwnedDB() error {
	if !c.ownsDB || c.bunDB == nil {
		return nil
	}
	err := c.bunDB.Close()
	c.ownsDB = false
	return err
}

// LoggerProvider exposes the configured provider. Nil when logging is off.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Logger returns the root module logger.
func (c *Container) Logger() interfaces.Logger { return c.logger }

// DB returns the bun database, or nil for memory storage.
func (c *Container) DB() *bun.DB { return c.bunDB }

func (c *Container) Emitter() *activity.Emitter { return c.emitter }

func (c *Container) Broker() *realtime.Broker { return c.broker }

func (c *Container) Scheduler() interfaces.Scheduler { return c.scheduler }

func (c *Container) ObjectStore() interfaces.ObjectStore { return c.objectStore }

func (c *Container) RouteManager() *urlkit.RouteManager { return c.routeManager }

func (c *Container) Links() *links.Resolver { return c.linkResolver }

func (c *Container) Renderer() *markdown.Renderer { return c.renderer }

func (c *Container) AuditRecorder() jobs.AuditRecorder { return c.auditLog }

func (c *Container) TenantService() tenancy.Service { return c.tenantSvc }

func (c *Container) ClientService() clients.Service { return c.clientSvc }

func (c *Container) ProductService() products.Service { return c.productSvc }

func (c *Container) ProjectService() projects.Service { return c.projectSvc }

func (c *Container) InvoiceService() invoices.Service { return c.invoiceSvc }

func (c *Container) ExpenseService() expenses.Service { return c.expenseSvc }

func (c *Container) ActivityService() activitylog.Service { return c.activitySvc }

func (c *Container) AnalyticsService() analytics.Service { return c.analyticsSvc }

// ExportService is nil when the exports feature is disabled.
func (c *Container) ExportService() exports.Service { return c.exportSvc }

// ImportService is nil when the imports feature is disabled.
func (c *Container) ImportService() imports.Service { return c.importSvc }

// BlogService is nil when the blog feature is disabled.
func (c *Container) BlogService() blog.Service { return c.blogSvc }

func (c *Container) Worker() *jobs.Worker { return c.worker }

func (c *Container) SweepOverdueHandler() *invoicescmd.SweepOverdueHandler { return c.sweepHandler }

func (c *Container) PruneActivityHandler() *activitycmd.PruneActivityHandler { return c.pruneHandler }

func (c *Container) ProcessJobsHandler() *jobscmd.ProcessJobsHandler { return c.processHandler }

func (c *Container) AuditHandlers() jobscmd.AuditHandlers { return c.auditHandlers }

// GenerateExportHandler is nil when the exports feature is disabled.
func (c *Container) GenerateExportHandler() *exportscmd.GenerateExportHandler { return c.exportHandler }

// ImportPostsHandler is nil when the blog feature is disabled.
func (c *Container) ImportPostsHandler() *blogcmd.ImportPostsHandler { return c.importHandler }

// API returns the HTTP surface bound to the container services.
func (c *Container) API() *contractorhttp.API { return c.api }
