// facedetect: detect faces in an image with a remote YOLOv8n-face model on
// Triton, or serve detection over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-yoloface/internal/config"
	"github.com/teslashibe/go-yoloface/internal/log"
	"github.com/teslashibe/go-yoloface/pkg/detection"
	"github.com/teslashibe/go-yoloface/pkg/render"
	"github.com/teslashibe/go-yoloface/pkg/triton"
	"github.com/teslashibe/go-yoloface/pkg/web"
	"gocv.io/x/gocv"
)

type options struct {
	image      string
	out        string
	backend    string
	yunetModel string
	serve      bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.image, "image", "", "Input image path")
	flag.StringVar(&opts.out, "out", "detections.jpg", "Annotated output image path")
	flag.StringVar(&opts.backend, "backend", backendTriton, "Detection backend: triton, yunet or auto (triton with yunet fallback)")
	flag.StringVar(&opts.yunetModel, "yunet-model", detection.DefaultYuNetConfig().ModelPath, "YuNet ONNX model path")
	flag.BoolVar(&opts.serve, "serve", false, "Run the HTTP/WebSocket detection service")
	flag.StringVar(&cfg.TritonURL, "url", cfg.TritonURL, "Triton HTTP endpoint")
	flag.StringVar(&cfg.ModelName, "model", cfg.ModelName, "Model name on the server")
	flag.StringVar(&cfg.ModelVersion, "model-version", cfg.ModelVersion, "Model version (empty for server default)")
	flag.BoolVar(&cfg.KeepRatio, "keep-ratio", cfg.KeepRatio, "Letterbox instead of stretching")
	flag.Float64Var(&cfg.MinScore, "min-score", cfg.MinScore, "Drop detections scoring below this")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port for -serve")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if !opts.serve && opts.image == "" {
		fmt.Fprintln(os.Stderr, "Error: -image is required unless -serve is set")
		flag.Usage()
		os.Exit(2)
	}

	log.Init(cfg.LogLevel)
	logger := log.With("component", "facedetect")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	det, err := newDetector(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer det.Close()

	if opts.serve {
		wcfg := web.DefaultConfig()
		wcfg.Port = cfg.Port
		wcfg.MinScore = cfg.MinScore
		wcfg.Logger = log.L()
		return web.NewServer(det, wcfg).Start(ctx)
	}
	return detectFile(ctx, det, cfg.MinScore, opts, logger)
}

func newDetector(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) (detection.Detector, error) {
	remote := func() (detection.Detector, error) {
		det, err := newRemote(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return det, nil
	}
	local := func() (detection.Detector, error) {
		det, err := newYuNet(opts)
		if err != nil {
			return nil, err
		}
		return det, nil
	}
	return selectBackend(opts.backend, remote, local, log.L())
}

func newRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*detection.Remote, error) {
	client, err := triton.NewClient(ctx,
		triton.WithBaseURL(cfg.TritonURL),
		triton.WithModel(cfg.ModelName),
		triton.WithVersion(cfg.ModelVersion),
		triton.WithTimeout(cfg.HTTPTimeout),
		triton.WithLogger(log.L()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.TritonURL, err)
	}
	meta := client.Metadata()
	logger.Info("model ready", "model", meta.Name, "versions", meta.Versions, "url", cfg.TritonURL)

	dcfg := detection.DefaultConfig()
	dcfg.InputWidth = cfg.InputWidth
	dcfg.InputHeight = cfg.InputHeight
	dcfg.KeepRatio = cfg.KeepRatio
	dcfg.Logger = log.L()
	det, err := detection.NewRemote(client, dcfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	return det, nil
}

func newYuNet(opts options) (*detection.YuNet, error) {
	ycfg := detection.DefaultYuNetConfig()
	ycfg.ModelPath = opts.yunetModel
	ycfg.Logger = log.L()
	return detection.NewYuNet(ycfg)
}

func detectFile(ctx context.Context, det detection.Detector, minScore float64, opts options, logger *slog.Logger) error {
	data, err := os.ReadFile(opts.image)
	if err != nil {
		return err
	}
	img, err := detection.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.image, err)
	}
	defer img.Close()

	start := time.Now()
	dets, err := det.Detect(ctx, img)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	dets = detection.FilterByConfidence(dets, minScore)

	for _, d := range dets {
		fmt.Printf("%.1f %.1f %.1f %.1f %.3f\n", d.X, d.Y, d.W, d.H, d.Confidence)
	}
	fmt.Printf("%d face(s) in %dx%d image, %s\n", len(dets), img.Cols(), img.Rows(), elapsed.Round(time.Millisecond))

	if opts.out == "" {
		return nil
	}
	return writeAnnotated(img, dets, opts.out, logger)
}

func writeAnnotated(img gocv.Mat, dets []detection.Detection, path string, logger *slog.Logger) error {
	drawn, err := render.Draw(&img, dets, render.DefaultOptions())
	if err != nil {
		return err
	}
	if drawn < len(dets) {
		logger.Warn("skipped degenerate boxes", "count", len(dets)-drawn)
	}

	jpeg, err := render.EncodeJPEG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, jpeg, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("wrote annotated image", "path", path)
	return nil
}
