// courseflow 主入口
//
// 多角色协作的项目式课程设计工作流。
//
// 使用方法:
//
//	courseflow run --topic "人工智能启蒙" --audience "初中生" --duration "8 weeks" \
//	    --goals "理解AI概念,完成小项目"
//	courseflow run --config courseflow.yaml --topic ...
//	courseflow version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/config"
	"github.com/BaSui01/courseflow/internal/metrics"
	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/llm/providers/openai"
	"github.com/BaSui01/courseflow/specialists"
	"github.com/BaSui01/courseflow/types"
	"github.com/BaSui01/courseflow/workflow"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if err := runCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("courseflow %s (%s)\n", Version, GitCommit)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage:
  courseflow run --topic <topic> --audience <audience> --duration <duration> [--goals a,b] [--config file]
  courseflow version`)
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径")
	topic := fs.String("topic", "", "课程主题")
	audience := fs.String("audience", "", "目标受众")
	duration := fs.String("duration", "", "课程时长，如 8 weeks")
	goals := fs.String("goals", "", "学习目标，逗号分隔")
	courseCtx := fs.String("context", "", "补充背景说明")
	jsonOut := fs.Bool("json", false, "以 JSON 输出最终交付物")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		return err
	}
	logger, err := cfg.Log.BuildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Listen, reg, logger)
	}

	providers := make([]llm.Provider, 0, len(cfg.LLM.Backends))
	for _, b := range cfg.LLM.Backends {
		providers = append(providers, openai.New(openai.Config{
			Name:    b.Name,
			BaseURL: b.BaseURL,
			APIKey:  b.APIKey,
			Timeout: b.Timeout,
		}, logger))
	}
	gateway := llm.NewGateway(providers, cfg.LLM.GatewayConfig(), collector, logger)
	registry := specialists.NewRegistry(gateway, logger)

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithCollector(collector),
	}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close() //nolint:errcheck
		opts = append(opts, workflow.WithCheckpointStore(
			workflow.NewRedisCheckpointStore(client, cfg.Redis.CheckpointTTL)))
	}
	orch := workflow.New(registry, cfg.Workflow.WorkflowConfig(), opts...)

	req := types.Requirements{
		Topic:    *topic,
		Audience: *audience,
		Duration: *duration,
		Goals:    splitList(*goals),
	}
	if strings.TrimSpace(*courseCtx) != "" {
		req.Context = map[string]any{"notes": *courseCtx}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deliverable *workflow.Deliverable
	var runErr error
	for ev := range orch.Stream(ctx, req) {
		if ev.Err != nil {
			runErr = ev.Err
			continue
		}
		fmt.Printf("[%5.1f%%] %-24s %s\n", ev.Percent, ev.Phase, ev.Step)
		if ev.Metrics != nil && ev.Step == "quality_gate" {
			fmt.Printf("         composite=%.2f iteration=%d\n", ev.Metrics.Composite, ev.Iteration)
		}
		if ev.Deliverable != nil {
			deliverable = ev.Deliverable
		}
	}
	if runErr != nil {
		return runErr
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deliverable)
	}
	fmt.Printf("\n%s\n", deliverable.Architecture.Title)
	fmt.Printf("modules=%d materials=%d iterations=%d composite=%.2f\n",
		len(deliverable.Modules), len(deliverable.Materials),
		deliverable.Iterations, deliverable.Metrics.Composite)
	return nil
}

func serveMetrics(listen string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", zap.String("addr", listen))
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
