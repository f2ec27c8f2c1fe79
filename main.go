package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/config"
	mydb "github.com/galvezuma/BrachyUMA21/pkg/db"
	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/handler"
	"github.com/galvezuma/BrachyUMA21/pkg/middle"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"github.com/galvezuma/BrachyUMA21/pkg/render"
)

const (
	VERSION     = "1.0.0"
	ReportFile  = "result.html"
	ReportTitle = "Dehydrins in Brachypodium distachyon ecotypes"
)

func main() {
	if err := logger.InitLogger(zapcore.InfoLevel); err != nil {
		panic(err)
	}
	defer logger.Sync() // Make sure that the buffered is flushed.

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.LogLevel != zapcore.InfoLevel {
		if err := logger.InitLogger(cfg.LogLevel); err != nil {
			panic(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Start:", zap.String("Version", VERSION))
	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	order, err := readOrder(cfg.OrderFile)
	if err != nil {
		return err
	}

	f, err := mydb.OpenDataFile(cfg.DataFile)
	if err != nil {
		return err
	}
	varieties, err := mydb.LoadVarieties(f, mydb.LoadOptions{DropMissingSequences: cfg.DropMissing, Order: order})
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.DataFile, err)
	}
	logger.Info("Data loaded", zap.String("file", cfg.DataFile), zap.Int("varieties", len(varieties)))

	grouper, err := grouping.New(cfg.Grouping())
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := grouper.Run(ctx, varieties)
	if err != nil {
		return err
	}
	logger.Info("Grouping done",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("clusters", len(res.Clusters.Clusters)),
		zap.Int("residual", len(res.Clusters.Residual)),
	)

	out, err := mydb.OpenOutputDB(ctx, cfg.OutDir)
	if err != nil {
		return err
	}
	defer out.Close()

	report, err := export(ctx, out, cfg, varieties, res, titles(order))
	if err != nil {
		return err
	}
	logger.Info("Results written", zap.String("dir", cfg.OutDir))

	if cfg.Addr == "" {
		return nil
	}

	dbctx := &handler.DBContext{
		Store:       out.Store,
		Sequence_DB: out.SeqDB,
		Report:      report,
	}
	return serve(ctx, cfg.Addr, dbctx)
}

// export stores the run, writes the cluster FASTA files and renders the
// report side by side. The rendered report is returned for serving.
func export(ctx context.Context, out *mydb.OutputDB, cfg *config.Config, varieties []*model.Variety, res *grouping.Result, titles []string) ([]byte, error) {
	var report bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		run_id, err := out.Store.SaveRun(gctx, varieties, res, cfg.Threshold)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		logger.Info("Run stored", zap.String("run_id", run_id))
		return nil
	})
	g.Go(func() error {
		if err := out.SeqDB.WriteClusters(res.Clusters); err != nil {
			return fmt.Errorf("writing clusters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		page := render.BuildReport(ReportTitle, varieties, titles, res.Clusters)
		if err := render.RenderReport(&report, page); err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
		return os.WriteFile(path.Join(out.Dir, ReportFile), report.Bytes(), 0o644)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report.Bytes(), nil
}

func readOrder(file string) ([]mydb.OrderEntry, error) {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("No order file, using default backgrounds", zap.String("file", file))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	order, err := mydb.ReadOrder(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return order, nil
}

func titles(order []mydb.OrderEntry) []string {
	ret := make([]string, len(order))
	for i, o := range order {
		ret[i] = o.Title
	}
	return ret
}

func serve(ctx context.Context, addr string, dbctx *handler.DBContext) error {
	mwLogger := logger.Logger()
	srv := &http.Server{
		Addr: addr,
		Handler: middle.Chain(NewRouter(dbctx),
			middle.RequestIDMiddleware(mwLogger),
			middle.LoggingMiddleware(mwLogger),
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Server starting on", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
