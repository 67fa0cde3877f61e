// =============================================================================
// DialogFlow 主入口
// =============================================================================
// 命令行入口，提供交互式对话调试与版本信息
//
// 使用方法:
//
//	dialogflow chat                        # 交互式对话（规则模式，无需外部模型）
//	dialogflow chat --config config.yaml   # 指定配置文件
//	dialogflow chat --flow booking         # 启动后直接进入指定流程
//	dialogflow version                     # 显示版本信息
// =============================================================================
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/BaSui01/dialogflow"
	"github.com/BaSui01/dialogflow/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 💬 chat 命令
// =============================================================================

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	flowID := fs.String("flow", "", "Flow to start immediately")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 无外部模型客户端时引擎以规则 + 模板模式运行
	eng, err := dialogflow.FromConfig(cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	sessionID := uuid.NewString()
	fmt.Printf("session %s (persona: %s), type 'exit' to quit\n", sessionID, cfg.Persona.Name)

	if *flowID != "" {
		result, err := eng.StartFlow(ctx, sessionID, *flowID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start flow %q: %v\n", *flowID, err)
			os.Exit(1)
		}
		fmt.Printf("%s> %s\n", cfg.Persona.Name, result.Reply)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result, err := eng.ProcessTurn(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
			continue
		}
		fmt.Printf("%s> %s\n", cfg.Persona.Name, result.Reply)
		fmt.Printf("     [intent=%s state=%s conf=%.2f", result.Intent, result.State, result.Confidence)
		if result.FlowID != "" {
			fmt.Printf(" flow=%s status=%s", result.FlowID, result.FlowStatus)
		}
		fmt.Println("]")
		for _, followUp := range result.FollowUps {
			fmt.Printf("     ↳ %s\n", followUp)
		}
	}

	if err := eng.EndSession(ctx, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to end session: %v\n", err)
	}
}

// =============================================================================
// ℹ️ version / usage
// =============================================================================

func printVersion() {
	fmt.Printf("dialogflow %s (build %s, commit %s)\n", Version, BuildTime, GitCommit)
}

func printUsage() {
	fmt.Println(`dialogflow - dialogue orchestration engine

Usage:
  dialogflow chat [--config config.yaml] [--flow booking]
  dialogflow version
  dialogflow help`)
}
