package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"geminiimageapi/configs"
	"geminiimageapi/internal/application"
	"geminiimageapi/internal/domain"
	"geminiimageapi/internal/infrastructure/config"
	"geminiimageapi/internal/infrastructure/gemini"
	"geminiimageapi/internal/infrastructure/metrics"
	"geminiimageapi/internal/presentation/api"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version はビルド時に -ldflags で上書きされます
var version = "dev"

type (
	cmd struct {
		Serve   cmdServe `cmd:"" default:"1" help:"HTTPサーバーを起動します。"`
		Version struct{} `cmd:"" help:"バージョンを表示します。"`
	}
	cmdServe struct {
		EnvFile string `name:"env-file" help:"読み込む.envファイルのパス。" type:"path"`
		Addr    string `help:"待ち受けアドレス。SERVER_ADDR より優先されます。"`
	}
)

type serveFn func(ctx context.Context, c cmdServe) error

func main() {
	if err := doMain(context.Background(), os.Stdout, os.Stderr, os.Args[1:], serve); err != nil {
		log.Fatalf("エラー: %v", err)
	}
}

func doMain(ctx context.Context, stdout, stderr io.Writer, args []string, sf serveFn) error {
	var c cmd
	parser, err := kong.New(&c,
		kong.Name("gemini-image-api"),
		kong.Description("Gemini画像生成APIサーバー"),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("パーサーの作成に失敗: %w", err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return fmt.Errorf("引数の解析に失敗: %w", err)
	}

	switch kctx.Command() {
	case "version":
		_, _ = fmt.Fprintf(stdout, "gemini-image-api: %s\n", version)
		return nil
	case "serve":
		return sf(ctx, c.Serve)
	default:
		panic("unreachable")
	}
}

func serve(ctx context.Context, c cmdServe) error {
	// APIキーが無い場合はポートを開く前に終了する
	cfg, err := configs.LoadConfig(c.EnvFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	geminiClient, err := gemini.NewGeminiAPIClient(ctx, &cfg.Gemini, m, sugar)
	if err != nil {
		return fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err)
	}
	defer geminiClient.Close()

	imageService := application.NewImageApplicationService(
		geminiClient,
		domain.NewImageEncoder(cfg.API.UseDataURIPrefix()),
		sugar,
	)
	handler := api.NewHandler(imageService, cfg.API, sugar)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(handler, m, reg, sugar),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("サーバーを起動しました",
			"addr", cfg.Server.Addr,
			"model", cfg.Gemini.ModelName,
			"edit_input_mode", cfg.API.EditInputMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("終了シグナルを受信しました。サーバーを停止中...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバーの停止に失敗: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	sugar.Info("サーバーが正常に停止しました")
	return nil
}

// newLogger は、LOG_LEVEL と LOG_FORMAT に従ってロガーを作成します
func newLogger(c config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL の解析に失敗: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}
	return logger, nil
}
