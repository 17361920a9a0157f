package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/sheetlens/internal/config"
	"github.com/locvowork/sheetlens/internal/database"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/handler"
	"github.com/locvowork/sheetlens/internal/locale"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/preset"
	"github.com/locvowork/sheetlens/internal/repository"
	"github.com/locvowork/sheetlens/internal/search"
	"github.com/locvowork/sheetlens/internal/session"
	"github.com/locvowork/sheetlens/internal/store"
)

const sweepInterval = time.Minute

type App struct {
	Echo     *echo.Echo
	DB       *sql.DB
	Sessions *session.Manager
	Views    domain.ViewStateRepository
	Preset   preset.Preset

	datastore *database.DatastoreClient
	elastic   *database.ElasticSearchClient
	indexer   search.Indexer
	stop      context.CancelFunc
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

// Initialize loads configuration and wires every dependency. Backends are
// only dialed when configured.
func (a *App) Initialize(ctx context.Context) error {
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	p, err := preset.Load(cfg.PRESET_FILE)
	if err != nil {
		return fmt.Errorf("failed to load preset: %w", err)
	}
	a.Preset = p
	locale.SetDefault(Locale(p))

	if err := a.initViewStates(ctx); err != nil {
		return err
	}
	if err := a.initSearch(ctx); err != nil {
		return err
	}

	sectionStyle, cardStyle := p.SectionStyle, p.CardStyle
	a.Sessions = session.NewManager(cfg.SESSION_TTL,
		session.WithStoreOptions(store.WithDefaultStyles(&sectionStyle, &cardStyle)))

	h := handler.NewWorkbookHandler(a.Sessions, a.Views, a.indexer,
		handler.WithExportStyles(p.Export),
		handler.WithLocale(locale.Default()),
		handler.WithMaxUpload(cfg.MAX_UPLOAD_BYTES),
	)

	a.RegisterMiddlewares()
	a.RegisterRoutes(h)
	return nil
}

// Locale resolves the display locale: the preset wins over the environment
// when it names one.
func Locale(p preset.Preset) *locale.Locale {
	cfg := config.DefaultEnvConfig
	tag, symbol := p.Locale, p.CurrencySymbol
	if cfg != nil {
		if tag == "" {
			tag = cfg.LOCALE
		}
		if symbol == "" {
			symbol = cfg.CURRENCY_SYMBOL
		}
	}
	return locale.New(tag).WithCurrency(symbol)
}

func (a *App) initViewStates(ctx context.Context) error {
	repo, db, ds, err := NewViewStateRepository(ctx)
	if err != nil {
		return err
	}
	a.Views, a.DB, a.datastore = repo, db, ds
	return nil
}

// NewViewStateRepository opens the backend named by VIEW_STORE_DRIVER:
// memory, postgres or datastore. The returned db or datastore client is
// non-nil when it must be closed by the caller.
func NewViewStateRepository(ctx context.Context) (domain.ViewStateRepository, *sql.DB, *database.DatastoreClient, error) {
	cfg := config.DefaultEnvConfig
	switch cfg.VIEW_STORE_DRIVER {
	case "", "memory":
		logger.InfoLog(ctx, "View states are kept in memory")
		return repository.NewMemoryViewStateRepository(), nil, nil, nil

	case "postgres":
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := repository.MigrateViewStates(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to migrate view states: %w", err)
		}
		logger.InfoLog(ctx, "View states are stored in postgres %s/%s", cfg.DB_HOST, cfg.DB_NAME)
		return repository.NewViewStateRepository(db), db, nil, nil

	case "datastore":
		ds, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize datastore: %w", err)
		}
		logger.InfoLog(ctx, "View states are stored in datastore project %s", cfg.DATASTORE_PROJECT_ID)
		return repository.NewDatastoreViewStateRepository(ds), nil, ds, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown VIEW_STORE_DRIVER %q", cfg.VIEW_STORE_DRIVER)
	}
}

func (a *App) initSearch(ctx context.Context) error {
	cfg := config.DefaultEnvConfig
	if cfg.ELASTIC_URL == "" {
		logger.InfoLog(ctx, "Search is disabled, ELASTIC_URL is not set")
		a.indexer = search.NopIndexer{}
		return nil
	}
	es, err := database.NewElasticSearchClient(cfg.ELASTIC_URL, cfg.ELASTIC_INDEX)
	if err != nil {
		return fmt.Errorf("failed to initialize elasticsearch: %w", err)
	}
	a.elastic = es
	a.indexer = search.NewElasticIndexer(es)
	logger.InfoLog(ctx, "Rows are indexed into %s", cfg.ELASTIC_INDEX)
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Validator = handler.NewRequestValidator()
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	if limit := config.DefaultEnvConfig.MAX_UPLOAD_BYTES; limit > 0 {
		// Leave room for the multipart envelope around the file.
		a.Echo.Use(middleware.BodyLimit(strconv.FormatInt(limit/1024+64, 10) + "K"))
	}
}

func (a *App) RegisterRoutes(h *handler.WorkbookHandler) {
	a.Echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	h.RegisterRoutes(a.Echo.Group("/api"))
}

// Run serves until the server stops, sweeping idle sessions meanwhile.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go a.Sessions.Run(ctx, sweepInterval)
	return a.Echo.Start(":" + strconv.Itoa(config.DefaultEnvConfig.APP_PORT))
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases sessions and backend connections. Call it once Run has
// returned.
func (a *App) Close() {
	ctx := context.Background()
	if a.stop != nil {
		a.stop()
	}
	if a.Sessions != nil {
		a.Sessions.Close(ctx)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.ErrorLog(ctx, err, "close database")
		}
		a.DB = nil
	}
	if a.datastore != nil {
		if err := a.datastore.Close(); err != nil {
			logger.ErrorLog(ctx, err, "close datastore")
		}
		a.datastore = nil
	}
	if a.elastic != nil {
		a.elastic.Stop()
		a.elastic = nil
	}
}
