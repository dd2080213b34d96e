package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/api/scheduler"
	"github.com/moyijulius/crime-report-platform/attachments"
	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/mailer"
	"github.com/moyijulius/crime-report-platform/models"
	"github.com/moyijulius/crime-report-platform/queue"
)

// metricsBuffer is how many request traces may wait for aggregation
const metricsBuffer = 1000

// App stores the router and db connection, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	Auth    *api.Authenticator
	Store   attachments.Store
	Events  queue.Publisher
	Mailer  mailer.Mailer
	Hub     *CaseHub
	Metrics *api.MetricsCollector

	client    databases.ClientHelper
	dbHelper  databases.DatabaseHelper
	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
}

// Deps are the collaborators the router is built from
type Deps struct {
	DB     databases.DatabaseHelper
	Store  attachments.Store
	Events queue.Publisher
	Mailer mailer.Mailer
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	udb := databases.NewUserDatabase(a.dbHelper)
	rdb := databases.NewReportDatabase(a.dbHelper)
	tdb := databases.NewTestimonialDatabase(a.dbHelper)

	acc := Account{DB: udb, Auth: a.Auth}
	rep := Report{
		RDB:            rdb,
		UDB:            udb,
		Store:          a.Store,
		Events:         a.Events,
		Mailer:         a.Mailer,
		Hub:            a.Hub,
		MaxUploadBytes: a.Config.MaxUploadBytes,
		MaxFiles:       a.Config.MaxFiles,
	}
	tst := Testimonial{DB: tdb}
	adm := Admin{UDB: udb, TDB: tdb, Metrics: a.Metrics}

	requireToken := a.Auth.RequireToken
	optionalToken := a.Auth.OptionalToken
	officersOnly := api.RequireRole(api.MessageOfficerRequired, models.RoleOfficer, models.RoleAdmin)
	adminsOnly := api.RequireRole(api.MessageAdminRequired, models.RoleAdmin)

	r := mux.NewRouter()
	r.Use(a.Metrics.Middleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", acc.RegisterHandler).Methods("POST")
	authRouter.HandleFunc("/login", acc.LoginHandler).Methods("POST")
	authRouter.Handle("/profile", requireToken(http.HandlerFunc(acc.ProfileHandler))).Methods("GET")
	authRouter.Handle("/profile", requireToken(http.HandlerFunc(acc.UpdateProfileHandler))).Methods("PUT")
	authRouter.Handle("/logout", requireToken(http.HandlerFunc(acc.LogoutHandler))).Methods("POST")

	officerRouter := r.PathPrefix("/api/officers").Subrouter()
	officerRouter.Handle("/profile", requireToken(officersOnly(http.HandlerFunc(acc.ProfileHandler)))).Methods("GET")

	reportRouter := r.PathPrefix("/api/reports").Subrouter()
	reportRouter.Handle("", optionalToken(http.HandlerFunc(rep.CreateReportHandler))).Methods("POST")
	reportRouter.Handle("/", optionalToken(http.HandlerFunc(rep.CreateReportHandler))).Methods("POST")
	reportRouter.Handle("", requireToken(officersOnly(http.HandlerFunc(rep.ReportsHandler)))).Methods("GET")
	reportRouter.Handle("/", requireToken(officersOnly(http.HandlerFunc(rep.ReportsHandler)))).Methods("GET")
	reportRouter.Handle("/user", requireToken(http.HandlerFunc(rep.UserReportsHandler))).Methods("GET")
	reportRouter.Handle("/{id}/status", requireToken(officersOnly(http.HandlerFunc(rep.UpdateStatusHandler)))).Methods("PUT")
	reportRouter.Handle("/{referenceNumber}/messages", optionalToken(http.HandlerFunc(rep.AddMessageHandler))).Methods("POST")
	reportRouter.HandleFunc("/{referenceNumber}/messages/ws", rep.MessagesSocketHandler).Methods("GET")
	reportRouter.Handle("/{id}", requireToken(http.HandlerFunc(rep.DeleteReportHandler))).Methods("DELETE")
	reportRouter.HandleFunc("/{referenceNumber}", rep.ReportByReferenceHandler).Methods("GET")

	r.HandleFunc("/api/testimonials", tst.ApprovedTestimonialsHandler).Methods("GET")
	r.HandleFunc("/api/testimonials", tst.CreateTestimonialHandler).Methods("POST")
	r.Handle("/api/testimonials/{id}/approve", requireToken(adminsOnly(http.HandlerFunc(tst.ApproveTestimonialHandler)))).Methods("PATCH")

	adminRouter := r.PathPrefix("/api/admin").Subrouter()
	adminRouter.Use(requireToken, adminsOnly)
	adminRouter.HandleFunc("/testimonials", adm.TestimonialsHandler).Methods("GET")
	adminRouter.HandleFunc("/testimonials/{id}", adm.UpdateTestimonialHandler).Methods("PUT")
	adminRouter.HandleFunc("/testimonials/{id}", adm.DeleteTestimonialHandler).Methods("DELETE")
	adminRouter.HandleFunc("/users", adm.UsersHandler).Methods("GET")
	adminRouter.HandleFunc("/users/role/{role}", adm.UsersByRoleHandler).Methods("GET")
	adminRouter.HandleFunc("/users/{id}", adm.UpdateUserHandler).Methods("PUT")
	adminRouter.HandleFunc("/users/{id}", adm.DeleteUserHandler).Methods("DELETE")
	adminRouter.HandleFunc("/reports", rep.ReportsHandler).Methods("GET")
	adminRouter.HandleFunc("/reports/{id}", rep.UpdateStatusHandler).Methods("PUT")
	adminRouter.HandleFunc("/reports/{id}", rep.DeleteReportHandler).Methods("DELETE")
	adminRouter.HandleFunc("/reports/{id}/messages", rep.AddMessageByIDHandler).Methods("POST")
	adminRouter.HandleFunc("/metrics", adm.MetricsHandler).Methods("GET")

	return r
}

// Wire builds the router over already constructed dependencies
func (a *App) Wire(ctx context.Context, deps Deps) {
	a.dbHelper = deps.DB
	a.Store = deps.Store
	a.Events = deps.Events
	a.Mailer = deps.Mailer
	if a.Events == nil {
		a.Events = queue.Nop{}
	}
	if a.Mailer == nil {
		a.Mailer = mailer.Log{}
	}
	a.Auth = api.NewAuthenticator(ctx, a.Config.JWTSecret, a.Config.TokenTTL, databases.NewTokenDatabase(a.dbHelper))
	a.Hub = NewCaseHub(a.Config.AllowedOrigins)
	a.Metrics = api.NewMetricsCollector(metricsBuffer)
	a.Router = a.New()
}

// Initialize connects to the database, the attachment store and the broker,
// then builds the router and starts the background jobs
func (a *App) Initialize(ctx context.Context) error {
	if a.Config.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	ctx, a.cancel = context.WithCancel(ctx)

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	if err = client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	db := databases.NewDatabase(&a.Config, client)

	qctx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	if err := client.Ping(qctx); err != nil {
		return err
	}
	if err := ensureIndexes(qctx, db); err != nil {
		return err
	}
	zap.S().Info("crime-report-platform has connected to the database")

	store, err := attachments.New(ctx, &a.Config)
	if err != nil {
		return err
	}
	events, err := queue.New(a.Config.AMQPURI, a.Config.EventsQueue)
	if err != nil {
		return err
	}
	m := mailer.New(&a.Config)

	a.Wire(ctx, Deps{DB: db, Store: store, Events: events, Mailer: m})

	a.scheduler = scheduler.NewScheduler(
		databases.NewReportDatabase(db),
		databases.NewUserDatabase(db),
		m,
		a.Config.DigestSchedule,
		a.Config.StaleReportAfter,
	)
	return a.scheduler.Start()
}

// Handler wraps the router with panic recovery and CORS
func (a *App) Handler() http.Handler {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(a.Config.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		gorillahandlers.ExposedHeaders([]string{"X-Request-ID"}),
	)
	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(zapRecoveryLogger{}),
		gorillahandlers.PrintRecoveryStack(a.Config.Environment != "production"),
	)
	return recovery(cors(a.Router))
}

// Shutdown stops background work and closes every connection
func (a *App) Shutdown(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Metrics != nil {
		a.Metrics.Stop()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			zap.S().Warnw("failed to close event publisher", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
}

func ensureIndexes(ctx context.Context, db databases.DatabaseHelper) error {
	for _, ensure := range []func(context.Context) error{
		databases.NewUserDatabase(db).EnsureIndexes,
		databases.NewReportDatabase(db).EnsureIndexes,
		databases.NewTokenDatabase(db).EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

type zapRecoveryLogger struct{}

func (zapRecoveryLogger) Println(v ...interface{}) {
	zap.S().Errorw("recovered from panic", "panic", v)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
