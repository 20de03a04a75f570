package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mchmarny/riskview/pkg/logging"
	"github.com/mchmarny/riskview/pkg/metrics"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	//go:embed assets/* templates/*
	embedFS embed.FS

	portFlag = &urfave.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen",
		Value: serverPortDefault,
	}

	noBrowserFlag = &urfave.BoolFlag{
		Name:    "no-browser",
		Aliases: []string{"nb"},
		Usage:   "Do not open browser automatically",
	}

	cacheModelFlag = &urfave.BoolFlag{
		Name:  "cache-model",
		Usage: "Keep the model artifact for the life of the server instead of fetching it on every render",
	}

	serverCmd = &urfave.Command{
		Name:    "serve",
		Aliases: []string{"server", "s"},
		Usage:   "Start local dashboard server",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			portFlag,
			noBrowserFlag,
			cacheModelFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	level := "info"
	if cmd.Bool(debugFlag.Name) {
		level = "debug"
	}
	slog.SetDefault(logging.NewServerLogger(level))

	conn, err := loadConnection(cmd)
	if err != nil {
		return err
	}

	d := newDashboard(ctx, conn, cmd.Bool(cacheModelFlag.Name))
	defer d.close()

	// fail before listening when the warehouse is unreachable
	if _, err := d.provider.Get(ctx); err != nil {
		return fmt.Errorf("connecting to warehouse: %w", err)
	}

	address := fmt.Sprintf("127.0.0.1:%d", cmd.Int(portFlag.Name))

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(d),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error starting server", "error", err)
			done <- syscall.SIGTERM
		}
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url, "cache_model", cmd.Bool(cacheModelFlag.Name))

	if !cmd.Bool(noBrowserFlag.Name) {
		openBrowser(url)
	}

	<-done

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(d *dashboard) http.Handler {
	tmpl := template.Must(template.New("").ParseFS(embedFS, "templates/*.html"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(slog.Default()))
	r.Use(middleware.Recoverer)

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(embedFS)))
	r.Get("/favicon.ico", faviconHandler)

	// Views
	r.Get("/", viewHandler(tmpl, d.pages()))

	// Data API
	r.Route("/data", func(r chi.Router) {
		r.Get("/features", featuresAPIHandler(d))
		r.Get("/education", educationAPIHandler(d))
	})

	// Ops
	r.Get("/healthz", healthHandler(d))
	r.Handle("/metrics", metrics.Handler())

	return r
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
