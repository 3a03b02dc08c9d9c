package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/user-cache/internal/cache"
	"github.com/any-hub/user-cache/internal/config"
	"github.com/any-hub/user-cache/internal/logging"
	"github.com/any-hub/user-cache/internal/metrics"
	"github.com/any-hub/user-cache/internal/server"
	"github.com/any-hub/user-cache/internal/server/routes"
	"github.com/any-hub/user-cache/internal/source"
	"github.com/any-hub/user-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	lookupID    string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		for k, v := range logging.SourceFields(cfg.Source.Type, cfg.Source.AuthMode(), len(cfg.Users)) {
			fields[k] = v
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序为“配置 → 数据源 → 指标注册表 → 缓存 → Fiber server”，
	// 所有请求共享同一个缓存实例。
	src, err := source.New(cfg, nil)
	if err != nil {
		fmt.Fprintf(stdErr, "构建数据源失败: %v\n", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	repo, err := buildRepository(cfg, src, registry, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}

	if opts.lookupID != "" {
		return runLookup(repo, logger, opts.lookupID)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	for k, v := range logging.SourceFields(cfg.Source.Type, cfg.Source.AuthMode(), len(cfg.Users)) {
		fields[k] = v
	}
	fields["listen_port"] = cfg.Global.ListenPort
	fields["shards"] = repo.Stats().Shards
	fields["single_flight"] = cfg.Global.SingleFlight
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, repo, registry, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildRepository 组装缓存并把查询计数、条目数注册到 Prometheus。
func buildRepository(cfg *config.Config, src source.Source, registry *prometheus.Registry, logger *logrus.Logger) (*cache.Repository, error) {
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		return nil, err
	}

	repo, err := cache.New(src,
		cache.WithShards(cfg.Global.Shards),
		cache.WithSingleFlight(cfg.Global.SingleFlight),
		cache.WithRecorder(recorder),
		cache.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := metrics.RegisterEntries(registry, repo.Len); err != nil {
		return nil, err
	}
	return repo, nil
}

// runLookup 执行一次查询并把结果以 JSON 写到 stdout，用于排查数据源问题。
func runLookup(repo *cache.Repository, logger *logrus.Logger, id string) int {
	res, err := repo.Search(context.Background(), id)
	if err != nil {
		fields := logging.LookupFields(id, "", "", false)
		fields["mode"] = "cli"
		logger.WithError(err).WithFields(fields).Warn("user_lookup_failed")
		if errors.Is(err, cache.ErrNotFound) {
			fmt.Fprintf(stdErr, "用户不存在: %s\n", id)
		} else {
			fmt.Fprintf(stdErr, "查询失败: %v\n", err)
		}
		return 1
	}

	fields := logging.LookupFields(id, "", res.Origin.String(), res.Hit())
	fields["mode"] = "cli"
	logger.WithFields(fields).Info("user_lookup_completed")

	enc := json.NewEncoder(stdOut)
	if err := enc.Encode(res.User); err != nil {
		fmt.Fprintf(stdErr, "输出结果失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("user-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		lookupID   string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 USER_CACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&lookupID, "lookup", "", "查询指定用户并输出 JSON 后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("USER_CACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		lookupID:    lookupID,
	}, nil
}

func startHTTPServer(cfg *config.Config, repo *cache.Repository, registry *prometheus.Registry, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterUserRoutes(app, repo, logger)
	routes.RegisterDiagnosticsRoutes(app, repo, registry)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
