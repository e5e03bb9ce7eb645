// Command judgecore starts a daemon that consumes judge tasks from a
// queue and runs each submission inside a runc sandbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/codequay/judgecore/classify"
	"github.com/codequay/judgecore/cmd/judgecore/config"
	"github.com/codequay/judgecore/cmd/judgecore/version"
	"github.com/codequay/judgecore/container"
	"github.com/codequay/judgecore/judge"
	"github.com/codequay/judgecore/model"
	"github.com/codequay/judgecore/ocispec"
	"github.com/codequay/judgecore/queue"
	"github.com/codequay/judgecore/queue/channel"
)

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}
	warnIfNotLinux()

	evaluator := newEvaluator(conf)
	q := channel.New()

	servers := []initFunc{
		initJudgeWorkers(conf, q, evaluator),
		initMonitorHTTPServer(conf),
	}

	// Gracefully shutdown, with signal / worker pool / monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers))

	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")

	ctx, cancel := context.WithTimeout(context.TODO(), time.Second*3)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		eg.Go(func() error {
			return s(ctx)
		})
	}

	go func() {
		logger.Info("Shutdown Finished", zap.Error(eg.Wait()))
		cancel()
	}()
	<-ctx.Done()
}

func warnIfNotLinux() {
	if runtime.GOOS != "linux" {
		logger.Warn("Platform is not supported", zap.String("GOOS", runtime.GOOS))
		logger.Warn("Sandboxed judging requires Linux namespaces and cgroups")
	}
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func newEvaluator(conf *config.Config) *judge.Evaluator {
	mounts, err := ocispec.ReadMountConfig(conf.MountConf)
	if err != nil {
		logger.Fatal("load mount config failed", zap.Error(err))
	}
	if mounts == nil {
		logger.Info("Mount config not found, using defaults", zap.String("path", conf.MountConf))
		mounts = ocispec.DefaultMounts()
	}

	seccompSpec, err := ocispec.ReadSeccompConf(conf.SeccompConf)
	if err != nil {
		logger.Fatal("load seccomp config failed", zap.Error(err))
	}
	if seccompSpec == nil {
		logger.Info("Seccomp config not found, running without filter", zap.String("path", conf.SeccompConf))
	}

	var outputLimit, compileMemoryLimit model.Size
	if conf.OutputLimit != nil {
		outputLimit = *conf.OutputLimit
	}
	if conf.CompileMemoryLimit != nil {
		compileMemoryLimit = *conf.CompileMemoryLimit
	}

	invoker, err := container.New(container.Config{
		Backend:        container.NewRunc(conf.RuncPath),
		Root:           conf.BundleRoot,
		Mounts:         mounts,
		Seccomp:        seccompSpec,
		HostUID:        uint32(conf.HostUID),
		HostGID:        uint32(conf.HostGID),
		OutputLimit:    outputLimit,
		GracePeriod:    conf.GracePeriod,
		SampleInterval: conf.SampleInterval,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("create sandbox invoker failed", zap.Error(err))
	}

	cmp, err := classify.ComparatorByName(conf.Compare)
	if err != nil {
		logger.Fatal("invalid comparison policy", zap.Error(err))
	}

	judgeConf := judge.Config{
		Runner:             invoker,
		WorkRoot:           conf.WorkDir,
		Compare:            cmp,
		MaxConcurrency:     int64(conf.MaxSandbox),
		FailFast:           conf.FailFast,
		RetrySystemError:   conf.RetrySystemError,
		CompileTimeLimit:   conf.CompileTimeLimit,
		CompileMemoryLimit: compileMemoryLimit,
		ExtraCompileArgs:   splitArgs(conf.ExtraCompileArgs),
		ExtraRunArgs:       splitArgs(conf.ExtraRunArgs),
		Logger:             logger,
	}
	if conf.EnableMetrics {
		judgeConf.CaseObserver = caseObserve
	}
	evaluator, err := judge.New(judgeConf)
	if err != nil {
		logger.Fatal("create evaluator failed", zap.Error(err))
	}
	return evaluator
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		logger.Fatal("parse extra arguments failed", zap.String("args", s), zap.Error(err))
	}
	return args
}

// initJudgeWorkers starts the worker pool: Parallelism goroutines each
// consuming tasks from the queue, judging them and delivering the result
// through the task's completion callback.
func initJudgeWorkers(conf *config.Config, q queue.Receiver, evaluator *judge.Evaluator) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(conf.Parallelism)
		for range conf.Parallelism {
			go judgeLoop(ctx, &wg, q, evaluator, conf.EnableMetrics)
		}
		logger.Info("Worker pool started",
			zap.Int("parallelism", conf.Parallelism),
			zap.Int("maxSandbox", conf.MaxSandbox),
			zap.String("workDir", conf.WorkDir),
			zap.String("bundleRoot", conf.BundleRoot))
		return nil, func(_ context.Context) error {
			cancel()
			wg.Wait()
			logger.Info("Worker pool shutdown")
			return nil
		}
	}
}

func judgeLoop(ctx context.Context, wg *sync.WaitGroup, q queue.Receiver, evaluator *judge.Evaluator, metrics bool) {
	defer wg.Done()
	c := q.C()
	for {
		select {
		case t := <-c:
			queuedTasks.Inc()
			r := evaluator.Judge(ctx, t.Task())
			t.Done(r)
			queuedTasks.Dec()
			if metrics {
				resultObserve(r)
			}
			logger.Info("Task judged",
				zap.Stringer("submission", r.SubmissionID),
				zap.Stringer("status", r.Status),
				zap.Float64("score", r.Score),
				zap.Duration("time", r.Time),
				zap.Stringer("memory", r.Memory))
		case <-ctx.Done():
			return
		}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		mr := initMonitorHTTPMux(conf)
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mr,
		}
		return func() {
				logger.Info("Starting monitoring http server", zap.String("addr", conf.MonitorAddr))
				if err := msrv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Monitoring http server stopped", zap.Error(err))
				} else {
					logger.Error("Monitoring http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPMux(conf *config.Config) http.Handler {
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	if conf.EnableMetrics {
		initGinMetrics(r)
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if conf.EnableDebug {
		initDebugRoute(r)
	}

	r.GET("/health", handleHealth)
	r.GET("/version", handleVersion)
	return r
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func initDebugRoute(r *gin.Engine) {
	r.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"buildVersion": version.Version,
		"goVersion":    runtime.Version(),
		"platform":     runtime.GOARCH,
		"os":           runtime.GOOS,
	})
}
