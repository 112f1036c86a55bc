package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogpu/gg"

	"github.com/ByLCY/namecard/card"
	"github.com/ByLCY/namecard/fonts"
	"github.com/ByLCY/namecard/layout"
	"github.com/ByLCY/namecard/preset"
	"github.com/ByLCY/namecard/server"
	"github.com/ByLCY/namecard/template"
)

func main() {
	name := flag.String("name", "", "name written on the card")
	presetName := flag.String("preset", card.DefaultPreset, "preset to draw")
	presetFile := flag.String("presets", os.Getenv("NAMECARD_PRESETS"), "preset file (default: built-in presets)")
	listPresets := flag.Bool("list", false, "list presets and exit")
	tpl := flag.String("template", "", "template path or URL overriding the preset's template")
	format := flag.String("format", "png", "output format: png, jpeg or pdf")
	outDir := flag.String("out", "output", "output directory")
	debug := flag.String("debug", "", "write the computed layout as JSON to this path")
	fontPath := flag.String("font", "", "TrueType/OpenType font used for the Body family")
	maxSide := flag.Int("max-side", 0, "downsize image templates to fit this many pixels per side (0 keeps native size)")
	jpegQuality := flag.Int("jpeg-quality", 0, "JPEG quality 1-100 (0 uses 92)")
	serve := flag.String("serve", portAddr(), "serve the HTTP API on this address instead of rendering once (e.g. :8080)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	gg.SetLogger(logger)

	set, err := loadPresets(*presetFile)
	if err != nil {
		logger.Error("load presets", slog.Any("error", err))
		os.Exit(1)
	}
	if *listPresets {
		for _, n := range set.Names() {
			fmt.Println(n)
		}
		return
	}

	reg := fonts.NewRegistry(set.BaseDir)
	set.RegisterFonts(reg)
	if *fontPath != "" {
		abs, err := filepath.Abs(*fontPath)
		if err != nil {
			logger.Error("font path", slog.Any("error", err))
			os.Exit(1)
		}
		reg.Register(fonts.DefaultFamily, fonts.Family{Regular: abs})
	}
	loader := template.NewLoader(set.BaseDir)
	loader.MaxSide = *maxSide
	gen, err := card.New(card.Options{
		Presets:     set,
		Loader:      loader,
		Fonts:       reg,
		Info:        set.Info,
		JPEGQuality: *jpegQuality,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("create generator", slog.Any("error", err))
		os.Exit(1)
	}

	if *serve != "" {
		if err := runServer(*serve, gen, set, logger); err != nil {
			logger.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	req := card.Request{Name: *name, Preset: *presetName, Format: *format}
	if *tpl != "" {
		if strings.HasPrefix(*tpl, "http://") || strings.HasPrefix(*tpl, "https://") {
			req.Template = template.URLSource(*tpl)
		} else {
			req.Template = template.FileSource(*tpl)
		}
	}
	path, err := run(context.Background(), gen, req, *outDir, *debug)
	if err != nil {
		logger.Error("generate card", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Printf("card written: %s\n", path)
}

// portAddr follows the PORT convention of hosted platforms.
func portAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ""
}

func loadPresets(path string) (*preset.Set, error) {
	if path == "" {
		return preset.Default()
	}
	return preset.LoadFile(path)
}

// run renders one card into outDir and returns the written path.
func run(ctx context.Context, gen *card.Generator, req card.Request, outDir, debugPath string) (string, error) {
	art, err := gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if debugPath != "" {
		if err := writeDebug(&art.Layout, debugPath); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outDir, art.FileName)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("write card: %w", err)
	}
	return path, nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if dir := filepath.Dir(debugPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("write debug JSON: %w", err)
	}
	return nil
}

func runServer(addr string, gen *card.Generator, set *preset.Set, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(gen, set, logger).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("starting server", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
