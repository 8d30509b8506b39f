package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"linkparser/internal/media"
	"linkparser/internal/preview"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve previews over HTTP",
	Long: `Serve previews over HTTP at GET /preview?url=<url>. When the upload URL
is a path, the upload directory is served under it.`,
	Args: cobra.NoArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Address to listen on (default from config)")
}

// previewer is the part of preview.Previewer the server needs.
type previewer interface {
	Preview(url string) media.PreviewResult
}

func serveRun(cmd *cobra.Command, args []string) error {
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	p, err := preview.New(cfg, logger)
	if err != nil {
		return err
	}

	uploadDir, err := cfg.ExpandUploadPath()
	if err != nil {
		return err
	}

	e := newServer(p, cfg.UploadURL, uploadDir, logger)
	logger.Info().Str("listen", cfg.Listen).Str("uploads", uploadDir).Msg("serving previews")

	if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// newServer builds the HTTP surface: the preview endpoint plus, when
// uploadURL is a path, the upload directory.
func newServer(p previewer, uploadURL, uploadDir string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/preview", func(c echo.Context) error {
		target := strings.TrimSpace(c.QueryParam("url"))
		if target == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing url parameter")
		}
		return c.JSON(http.StatusOK, p.Preview(target))
	})

	if prefix := strings.TrimRight(uploadURL, "/"); strings.HasPrefix(prefix, "/") {
		e.Static(prefix, uploadDir)
	}

	return e
}
