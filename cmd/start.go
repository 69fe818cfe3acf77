package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/api"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/db"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/janitor"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/pool"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/service/explorer"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/session"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

const (
	BindPortEnvVar  = "PORT"
	BindPortDefault = "8080"

	LogLevelEnvVar = "LOG_LEVEL"

	// SessionDBUrlEnvVar points at the MongoDB deployment that stores
	// session records. When unset or unreachable, sessions are held in
	// memory for the life of the process.
	SessionDBUrlEnvVar = "SESSION_DB_URL"

	SessionTimeoutMsEnvVar = "SESSION_TIMEOUT_MS"
	MaxSessionsEnvVar      = "MAX_SESSIONS"

	ConnectTimeoutMsEnvVar = "CONNECT_TIMEOUT_MS"
	IdleTimeoutMsEnvVar    = "IDLE_TIMEOUT_MS"
	MaxPoolSizeEnvVar      = "MAX_POOL_SIZE"

	DisableSweeperEnvVar  = "DISABLE_SWEEPER"
	SweepIntervalMsEnvVar = "SWEEP_INTERVAL_MS"
)

var startServerCmdBindPort string

var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the data explorer backend server",
	Long: "Starts the HTTP server that exposes the data exploration API.\n\n" +
		"Clients connect by POSTing a MongoDB connection string to /api/v0/connect and receive\n" +
		"a session token. The token is exchanged for a pooled connection on every subsequent request.\n\n" +
		"Set SESSION_DB_URL to a MongoDB connection string to persist sessions across restarts.\n" +
		"If it is unset or unreachable at startup, sessions are kept in memory until the process exits.\n\n" +
		"Tuning (all optional): SESSION_TIMEOUT_MS, MAX_SESSIONS, CONNECT_TIMEOUT_MS, IDLE_TIMEOUT_MS,\n" +
		"MAX_POOL_SIZE, SWEEP_INTERVAL_MS. Set DISABLE_SWEEPER=true to turn off periodic cleanup in\n" +
		"restart-heavy environments; idle connections and expired sessions are still evicted lazily.",
	RunE: runStartServer,
}

func init() {
	startServerCmd.Flags().StringVar(
		&startServerCmdBindPort,
		"port",
		"",
		fmt.Sprintf("port to bind the HTTP server to (overrides env var %s)", BindPortEnvVar),
	)
	rootCmd.AddCommand(startServerCmd)
}

// getBindPort returns the TCP port to bind the server to.
// precedence: command line flag > environment variable > default
func getBindPort() string {
	port := startServerCmdBindPort
	if port == "" {
		port = os.Getenv(BindPortEnvVar)
	}
	if port == "" {
		port = BindPortDefault
	}
	return port
}

// getDurationMs reads a millisecond duration from an environment variable.
// An unset variable returns def; an invalid value returns an error.
func getDurationMs(envVar string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 1 {
		return 0, fmt.Errorf("invalid value for %s: '%s', must be a positive integer (milliseconds)", envVar, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// getInt reads a positive integer from an environment variable.
func getInt(envVar string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid value for %s: '%s', must be a positive integer", envVar, v)
	}
	return n, nil
}

// getBool reads a boolean from an environment variable.
func getBool(envVar string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(envVar)))
	return v == "1" || v == "true"
}

func runStartServer(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	log := logger.New(os.Getenv(LogLevelEnvVar))

	sessionTimeout, err := getDurationMs(SessionTimeoutMsEnvVar, session.DefaultTimeout)
	if err != nil {
		return err
	}
	maxSessions, err := getInt(MaxSessionsEnvVar, session.DefaultMaxSessions)
	if err != nil {
		return err
	}
	connectTimeout, err := getDurationMs(ConnectTimeoutMsEnvVar, pool.DefaultConnectTimeout)
	if err != nil {
		return err
	}
	idleTimeout, err := getDurationMs(IdleTimeoutMsEnvVar, pool.DefaultIdleTimeout)
	if err != nil {
		return err
	}
	maxPoolSize, err := getInt(MaxPoolSizeEnvVar, pool.DefaultMaxSize)
	if err != nil {
		return err
	}
	sweepInterval, err := getDurationMs(SweepIntervalMsEnvVar, janitor.DefaultInterval)
	if err != nil {
		return err
	}

	// Session database: failure here is deliberately non-fatal. The store
	// falls back to in-memory mode and never retries for the life of the
	// process; a restart is required to promote back to persistent mode.
	sessionDBClient, err := db.NewSessionDBConnection(cmd.Context(), log, os.Getenv(SessionDBUrlEnvVar))
	if err != nil {
		log.Warn("failed to connect to session database, sessions will be held in memory",
			logger.Field{Key: "error", Value: err.Error()},
		)
		sessionDBClient = nil
	}

	connPool := pool.New(pool.Config{
		ConnectTimeout: connectTimeout,
		IdleTimeout:    idleTimeout,
		MaxSize:        maxPoolSize,
	}, log)

	sessionStore := session.NewManager(cmd.Context(), sessionDBClient, session.Config{
		Timeout:     sessionTimeout,
		MaxSessions: maxSessions,
	}, log)
	log.Info("session store initialized", logger.Field{Key: "mode", Value: string(sessionStore.Mode())})

	explorerService := explorer.NewService(connPool, sessionStore, log)

	j := janitor.New(connPool, sessionStore, sweepInterval, log)
	if getBool(DisableSweeperEnvVar) {
		log.Info("periodic cleanup disabled, relying on lazy eviction only")
	} else {
		j.Start()
		defer j.Stop()
	}

	s, err := api.NewServer(&api.ServerOptions{
		Pool:            connPool,
		SessionStore:    sessionStore,
		ExplorerService: explorerService,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	bindPort := getBindPort()
	httpServer := &http.Server{
		Addr:    ":" + bindPort,
		Handler: s.Router(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to run the server", logger.Field{Key: "error", Value: err.Error()})
			os.Exit(1)
		}
	}()
	log.Info("HTTP server listening", logger.Field{Key: "port", Value: bindPort})

	sig := <-quit
	log.Info("received signal, initiating graceful shutdown", logger.Field{Key: "signal", Value: sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %v", err)
	}

	connPool.Shutdown(shutdownCtx)
	if sessionDBClient != nil {
		if err := sessionDBClient.Disconnect(shutdownCtx); err != nil {
			log.Warn("error disconnecting from session database", logger.Field{Key: "error", Value: err.Error()})
		}
	}

	log.Info("server gracefully stopped")
	return nil
}
