package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AndreasAanestad/websync-station/internal/handlers"
	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"
	"github.com/AndreasAanestad/websync-station/internal/version"
)

type App struct {
	station     *station.Station
	authService *middleware.AuthService
	wsHub       *middleware.Hub
	rateLimiter *middleware.RateLimiter
	userStore   *station.UserStore
	ginLogFile  *os.File
	tlsEnabled  bool
	tlsCertPath string
	tlsKeyPath  string
}

var app *App

const (
	envUseTLS  = "WEBSYNC_USE_TLS"
	envTLSCert = "WEBSYNC_TLS_CERT"
	envTLSKey  = "WEBSYNC_TLS_KEY"
)

func envBool(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return parsed
}

func logStuff(msg string) {
	if app != nil && app.station != nil && app.station.Log != nil {
		app.station.Log.Write(msg)
		return
	}
	log.Println(msg)
}

func clearLogFile(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logStuff(fmt.Sprintf("Failed to ensure log directory for %s: %v", path, err))
		return
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logStuff(fmt.Sprintf("Failed to clear log file %s: %v", path, err))
		return
	}
	_ = file.Close()
}

// stationLogWriter adapts Station.Log to io.Writer for frameworks like Gin.
type stationLogWriter struct{ st *station.Station }

func (w stationLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if w.st != nil && w.st.Log != nil {
		w.st.Log.Write(msg)
	} else {
		log.Println(msg)
	}
	return len(p), nil
}

func main() {
	// Always run Gin in release mode; debugging is controlled via logs.
	gin.SetMode(gin.ReleaseMode)

	// Parse CLI flags: --config/-c <path>
	var configPath string
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "--config", "-c":
			if i+1 < len(os.Args) {
				configPath = strings.TrimSpace(os.Args[i+1])
				i++
			}
		}
	}
	if configPath == "" {
		configPath = "websync.config"
	}

	// First run: write a default config and hand control back to the
	// operator. The station never runs against a file nobody reviewed.
	if !station.ConfigExists(configPath) {
		if err := station.WriteDefaultConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write default configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("No configuration found; a default was written to %s\n", configPath)
		fmt.Println("Edit the file (port, backup targets, uptime URLs, warning settings) and start websync again.")
		return
	}

	st, err := station.NewStationWithConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	authService, err := middleware.NewAuthService(st.SessionHours)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize session auth: %v\n", err)
		os.Exit(1)
	}

	app = &App{
		station:     st,
		authService: authService,
		wsHub:       middleware.NewHub(st.Log),
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/100), 10),
		userStore:   station.NewUserStore(st.Paths),
		tlsEnabled:  envBool(envUseTLS),
		tlsCertPath: os.Getenv(envTLSCert),
		tlsKeyPath:  os.Getenv(envTLSKey),
	}

	if err := os.MkdirAll(st.Paths.ConfigDir(), 0o755); err != nil {
		logStuff(fmt.Sprintf("Failed to ensure config directory: %v", err))
	}
	if err := app.userStore.Load(); err != nil {
		logStuff(fmt.Sprintf("Failed to load console accounts: %v", err))
	}
	if app.userStore.IsEmpty() {
		logStuff(fmt.Sprintf("No console accounts found (users file: %s). POST /api/setup creates the initial admin.", app.userStore.Path()))
	}

	if !st.IsActive() {
		logStuff("Configuration could not be loaded; running with defaults until " + configPath + " is fixed")
	}

	// Feed console clients before the clock produces its first events.
	st.Broadcast = app.wsHub.BroadcastEvent
	go app.wsHub.Run()

	st.StartClock()
	st.StartTelemetry()
	st.StartPortForwarding()

	// Route Gin logs to a dedicated GIN.log (fallback to the station log).
	clearLogFile(filepath.Join(st.Paths.LogsDir(), "GIN.log"))
	if file, ferr := os.OpenFile(filepath.Join(st.Paths.LogsDir(), "GIN.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); ferr != nil {
		logStuff(fmt.Sprintf("Failed to open Gin log file: %v", ferr))
	} else {
		app.ginLogFile = file
		gin.DefaultWriter = file
		gin.DefaultErrorWriter = file
	}
	if app.ginLogFile == nil {
		gin.DefaultWriter = stationLogWriter{st: st}
		gin.DefaultErrorWriter = stationLogWriter{st: st}
	}
	if app.ginLogFile != nil {
		defer app.ginLogFile.Close()
	}

	r := setupRouter()

	srv := &http.Server{
		Addr:           ":" + strconv.Itoa(st.Port),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	// Standard library HTTP server errors (including TLS handshake noise)
	// land in the station log instead of stderr.
	srv.ErrorLog = log.New(stationLogWriter{st: st}, "", 0)

	if app.tlsEnabled {
		if app.tlsCertPath == "" || app.tlsKeyPath == "" {
			logStuff(fmt.Sprintf("%s is enabled but %s or %s not provided", envUseTLS, envTLSCert, envTLSKey))
			os.Exit(1)
		}
		go func() {
			logStuff(fmt.Sprintf("Starting HTTPS console on port %d", st.Port))
			if serr := srv.ListenAndServeTLS(app.tlsCertPath, app.tlsKeyPath); serr != nil && serr != http.ErrServerClosed {
				log.Fatalf("HTTPS server failed to start: %v", serr)
			}
		}()
	} else {
		go func() {
			logStuff(fmt.Sprintf("Starting console on port %d", st.Port))
			if serr := srv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
				log.Fatalf("Server failed to start: %v", serr)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logStuff("Shutting down...")

	// Give in-flight requests 5 seconds, then stop the background loops.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(ctx); err != nil {
		logStuff(fmt.Sprintf("HTTP server shutdown error: %v", err))
	}
	cancel()

	app.wsHub.Stop()
	app.rateLimiter.Stop()
	st.Shutdown()

	logStuff("Server exited")
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	// Security middleware
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	// Rate limiting - 100 requests per minute per IP
	r.Use(app.rateLimiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness probe: 200 once the configuration loaded, 503 with the
	// missing piece otherwise.
	r.GET("/readyz", readyHandler)

	// Public version endpoint with build metadata
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": version.Version,
			"commit":  version.Commit,
			"date":    version.Date,
			"dirty":   version.Dirty,
			"display": version.String(),
		})
	})

	authHandlers := handlers.NewAuthHandlers(app.authService, app.station, app.userStore)
	stationHandlers := handlers.NewStationHandlers(app.station, app.wsHub)
	userHandlers := handlers.NewUserHandlers(app.userStore, app.authService, app.station.Log)
	profileHandlers := handlers.NewProfileHandlers(app.userStore, app.authService)

	// First-run account creation and login stay outside the auth gate.
	r.POST("/api/setup", authHandlers.APISetup)
	r.POST("/api/login", authHandlers.APILogin)

	// API routes (require token authentication)
	api := r.Group("/api")
	api.Use(app.authService.RequireAPIAuth())
	api.Use(middleware.EnsureRoleContext(app.userStore, app.station.Log))
	{
		api.GET("/status", stationHandlers.APIStatus)
		api.GET("/audit", stationHandlers.APIAudit)
		api.GET("/backups", stationHandlers.APIBackups)
		api.GET("/backups/:description/records", stationHandlers.APIBackupRecords)
		api.GET("/me", authHandlers.APIMe)
		api.POST("/logout", authHandlers.APILogout)
		api.POST("/profile/password", profileHandlers.APIProfileChangePassword)

		// Manual runs and the schedule toggle change station state;
		// viewers stay read-only.
		actions := api.Group("")
		actions.Use(middleware.RequireRole(station.RoleOperator))
		{
			actions.POST("/backups/:description/run", stationHandlers.APIRunBackup)
			actions.POST("/restore", stationHandlers.APIRestore)
			actions.POST("/uptime/run", stationHandlers.APIRunUptime)
			actions.POST("/schedule", stationHandlers.APISchedule)
		}

		// Account management; the handlers enforce the admin role.
		api.GET("/users", userHandlers.APIUsersList)
		api.POST("/users", userHandlers.APIUsersCreate)
		api.POST("/users/:username/role", userHandlers.APIUsersSetRole)
		api.POST("/users/:username/password", userHandlers.APIUsersResetPassword)
		api.DELETE("/users/:username", userHandlers.APIUsersDelete)
	}

	// WebSocket endpoint; session cookie rides along on the handshake.
	r.GET("/ws", app.authService.RequireAPIAuth(), app.wsHub.HandleWebSocket())

	return r
}

func readyHandler(c *gin.Context) {
	ready := app != nil && app.station != nil && app.station.IsActive()
	missing := []string{}
	if !ready {
		missing = append(missing, "configuration")
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":   ready,
		"missing": missing,
	})
}
