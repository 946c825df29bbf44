package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"go.uber.org/zap"
)

// request 外部模型的输入包装：{"payload": {...}}
type request struct {
	Payload interface{} `json:"payload"`
}

// Runner 调用外部模型，返回模型输出的 JSON
type Runner interface {
	Run(ctx context.Context, payload interface{}) ([]byte, error)
}

// NewRunner 按配置选择子进程或 HTTP，均未配置返回 nil
func NewRunner(ep config.ModelEndpoint, logger *zap.Logger) Runner {
	switch {
	case ep.Command != "":
		return NewCommandRunner(ep.Command, ep.Args, ep.Timeout, logger)
	case ep.URL != "":
		return NewHTTPRunner(ep.URL, ep.Timeout, logger)
	default:
		return nil
	}
}

// CommandRunner 子进程模型：payload 写入 stdin，stdout 最后一行 JSON 为结果
type CommandRunner struct {
	command string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCommandRunner 创建子进程调用器
func NewCommandRunner(command string, args []string, timeout time.Duration, logger *zap.Logger) *CommandRunner {
	return &CommandRunner{
		command: command,
		args:    args,
		timeout: timeout,
		logger:  logger,
	}
}

// Run 执行一次模型调用，超时后进程会被杀掉
func (r *CommandRunner) Run(ctx context.Context, payload interface{}) ([]byte, error) {
	input, err := json.Marshal(request{Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model payload: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("model process timed out after %s: %w", time.Since(start).Round(time.Millisecond), ctx.Err())
		}
		return nil, fmt.Errorf("model process failed: %w: %s", err, lastLine(stderr.String()))
	}

	r.logger.Debug("Model process finished",
		zap.String("command", r.command),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stderr_bytes", stderr.Len()),
	)

	out := lastJSONLine(stdout.String())
	if out == "" {
		return nil, fmt.Errorf("model process produced no JSON output")
	}
	return []byte(out), nil
}

// lastJSONLine 取最后一行以 { 开头的输出
func lastJSONLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") {
			return line
		}
	}
	return ""
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// HTTPRunner HTTP 模型服务：POST {"payload": {...}}，响应体为结果
type HTTPRunner struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPRunner 创建 HTTP 调用器
func NewHTTPRunner(url string, timeout time.Duration, logger *zap.Logger) *HTTPRunner {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPRunner{
		httpClient: client,
		logger:     logger,
	}
}

// Run 执行一次模型调用
func (r *HTTPRunner) Run(ctx context.Context, payload interface{}) ([]byte, error) {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetBody(request{Payload: payload}).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("failed to call model service: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model service error: status %d", resp.StatusCode())
	}

	r.logger.Debug("Model service responded",
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)
	return resp.Body(), nil
}
