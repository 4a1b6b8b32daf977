// Command workflow-run invokes the research workflow from a terminal and
// prints the extracted, cleaned answer.
//
//	workflow-run                  # built-in case 1
//	workflow-run 2                # built-in case 2
//	workflow-run topic=无人机 title=无人机研究 keyType=chat
//	workflow-run -stream -out result.txt topic=无人机
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/logger"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/relay"
)

var testCases = []map[string]string{
	{
		"title":        "自主巡航配送机器人设计研究",
		"topic":        "自主巡航配送机器人设计",
		"requirements": "城市环境中的自主配送机器人，需要考虑安全性、导航能力和用户体验",
	},
	{
		"title":        "冰淇淋k歌麦克风产品效果生成",
		"topic":        "冰淇淋k歌麦克风",
		"requirements": "家用KTV麦克风，造型像冰淇淋，有独特的外观设计，适合年轻人聚会使用",
	},
}

// invocation is what the command line asks for
type invocation struct {
	Inputs  map[string]string
	KeyType models.KeyClass
	Case    int // 1-based; 0 when inputs came from key=value arguments
}

func main() {
	stream := flag.Bool("stream", false, "Use streaming mode and print text as it arrives")
	out := flag.String("out", "", "Write the answer to this file")
	user := flag.String("user", "test-script", "User identifier sent upstream")
	debug := flag.Bool("debug", false, "Log every stream chunk")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Upstream.User = *user

	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	log := logger.New(level, "console")
	defer log.Sync()

	inv, err := parseArgs(flag.Args())
	if err != nil {
		log.Fatal("Invalid arguments", zap.Error(err))
	}
	if inv.Case > 0 {
		log.Info("Using built-in test case", zap.Int("case", inv.Case))
	}
	apiKey := orchestration.NewKeyResolver(cfg.Upstream.Keys).Resolve(inv.KeyType)
	log.Info("Invoking workflow",
		zap.String("key_type", string(inv.KeyType)),
		zap.Any("inputs", inv.Inputs),
		zap.String("api_key", orchestration.PreviewKey(apiKey)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := orchestration.NewWorkflowClient(cfg.Upstream, log.Named("workflow"))
	req := orchestration.RunRequest{
		Inputs:   orchestration.PrepareInputs(inv.Inputs),
		APIKey:   apiKey,
		KeyClass: inv.KeyType,
	}
	policy := extract.Policy{
		MinLength: cfg.Extraction.MinLength,
		MaxDepth:  cfg.Extraction.MaxDepth,
		Fields:    cfg.Extraction.Fields,
	}

	var answer string
	if *stream {
		answer, err = runStreaming(ctx, client, req, os.Stdout, *debug, log)
	} else {
		answer, err = runBlocking(ctx, client, req, extract.New(policy), log)
	}
	if err != nil {
		log.Fatal("Workflow invocation failed", zap.Error(err))
	}

	fmt.Println("\n====== 调用成功 ======")
	fmt.Println(answer)

	if *out != "" {
		if err := os.WriteFile(*out, []byte(answer), 0o644); err != nil {
			log.Fatal("Failed to write result", zap.String("path", *out), zap.Error(err))
		}
		log.Info("Result written", zap.String("path", *out))
	}
}

// parseArgs reads key=value inputs; keyType=... selects the credential. With
// no inputs the built-in case named by a bare "2" (or case 1) is used.
func parseArgs(args []string) (*invocation, error) {
	inv := &invocation{Inputs: map[string]string{}, KeyType: models.KeyClassWorkflow}
	var bare []string

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			bare = append(bare, arg)
			continue
		}
		if key == "keyType" {
			inv.KeyType = models.KeyClass(value)
			continue
		}
		if key == "" || value == "" {
			return nil, fmt.Errorf("argument %q must be key=value", arg)
		}
		inv.Inputs[key] = value
	}

	if len(inv.Inputs) > 0 {
		return inv, nil
	}

	inv.Case = 1
	if len(bare) > 0 && bare[0] == "2" {
		inv.Case = 2
	}
	for k, v := range testCases[inv.Case-1] {
		inv.Inputs[k] = v
	}
	return inv, nil
}

func runBlocking(ctx context.Context, client orchestration.WorkflowClientInterface, req orchestration.RunRequest, extractor *extract.Extractor, log *zap.Logger) (string, error) {
	result, err := client.Run(ctx, req)
	if err != nil {
		return "", err
	}

	extracted := extractor.Extract(result.Raw)
	log.Info("Response received",
		zap.Duration("duration", result.Duration),
		zap.String("extraction", extracted.Path),
		zap.Bool("found", extracted.Found),
		zap.String("preview", logger.Preview(string(result.Raw), 500)))

	return extract.Normalize(extract.Unwrap(extracted.Answer)).Text, nil
}

// runStreaming echoes the reassembled text to w as frames arrive
func runStreaming(ctx context.Context, client orchestration.WorkflowClientInterface, req orchestration.RunRequest, w io.Writer, debug bool, log *zap.Logger) (string, error) {
	body, err := client.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	acc := extract.NewAccumulator()
	printed := 0
	observe := func(chunk []byte) {
		acc.Feed(chunk)
		text := acc.Text()
		if len(text) > printed {
			io.WriteString(w, text[printed:])
			printed = len(text)
		}
	}

	stats, err := relay.New(log.Named("relay")).Run(ctx, body, io.Discard, relay.Options{Debug: debug, Observer: observe})
	if err != nil {
		return "", err
	}
	if msg := acc.StreamError(); msg != "" {
		return "", fmt.Errorf("stream failed: %s", msg)
	}
	if !acc.Done() {
		log.Warn("Stream ended without [DONE]", zap.Int("chunks", stats.Chunks))
	}
	if n := acc.ParseErrors(); n > 0 {
		log.Warn("Stream frames were not JSON and were kept as text", zap.Int("frames", n))
	}

	result, err := acc.Finish()
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
