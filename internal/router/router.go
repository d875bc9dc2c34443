package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	auditlog "medication-schedule/internal/adapters/audit"
	mem "medication-schedule/internal/adapters/storage/memory"
	pg "medication-schedule/internal/adapters/storage/postgres"
	_ "medication-schedule/internal/docs"
	"medication-schedule/internal/domain/administrations"
	"medication-schedule/internal/domain/conflicts"
	"medication-schedule/internal/domain/patients"
	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/middleware"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/platform/metrics"
	"medication-schedule/internal/ports/audit"
	"medication-schedule/internal/ports/auth"
	"medication-schedule/internal/ports/interactions"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres (ya migrado). Si no, in-memory.
	DB *sql.DB

	Logger  logger.Logger    // nil => Nop
	Metrics *metrics.Metrics // nil => sin /metrics

	// Oracle nil => no se chequean interacciones.
	Oracle interactions.Oracle
	// Audit nil => LogRecorder sobre Logger.
	Audit audit.Recorder

	Conflicts conflicts.Config
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var (
		patientRepo    patients.Repository
		scheduleRepo   schedules.Repository
		adminRepo      administrations.Repository
		resolutionRepo conflicts.Repository
	)

	if opts.DB != nil {
		patientRepo = pg.NewPatientsRepo(opts.DB)
		scheduleRepo = pg.NewSchedulesRepo(opts.DB)
		adminRepo = pg.NewAdministrationsRepo(opts.DB)
		resolutionRepo = pg.NewResolutionsRepo(opts.DB)
	} else {
		patientRepo = mem.NewPatientRepo()
		scheduleRepo = mem.NewScheduleRepo()
		adminRepo = mem.NewAdministrationRepo()
		resolutionRepo = mem.NewResolutionRepo()
	}

	rec := opts.Audit
	if rec == nil {
		rec = auditlog.NewLogRecorder(log)
	}

	// Services por módulo
	patientsSvc := patients.NewService(patientRepo)
	schedulesSvc := schedules.NewService(scheduleRepo, patientsSvc)
	adminSvc := administrations.NewService(adminRepo, schedulesSvc)

	deps := conflicts.Deps{
		Repo:      resolutionRepo,
		Schedules: schedulesSvc,
		Oracle:    opts.Oracle,
		Audit:     rec,
		Log:       log.With(map[string]any{"module": "conflicts"}),
	}
	if opts.Metrics != nil {
		deps.Observer = opts.Metrics
	}
	conflictsSvc := conflicts.NewService(deps, opts.Conflicts)

	// Rutas planas: schedules y administrations comparten /schedules/{scheduleID}.
	patients.RegisterRoutes(r, patientsSvc)
	schedules.RegisterRoutes(r, schedulesSvc)
	administrations.RegisterRoutes(r, adminSvc)
	conflicts.RegisterRoutes(r, conflictsSvc)

	return r
}
