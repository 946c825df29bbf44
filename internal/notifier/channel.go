package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 通道名称
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Channel 通知通道
type Channel interface {
	Name() string
	// Configured 是否具备真实发送条件；未配置时调度器只记录模拟投递
	Configured() bool
	Send(ctx context.Context, recipient, subject, body string) error
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
}

// SMSChannel 短信网关（Twilio 兼容的 Messages 接口，表单提交 + Basic Auth）
type SMSChannel struct {
	httpClient *resty.Client
	accountSID string
	authToken  string
	from       string
	logger     *zap.Logger
}

// NewSMSChannel 创建短信通道
func NewSMSChannel(gatewayURL, accountSID, authToken, from string, timeout time.Duration, logger *zap.Logger) *SMSChannel {
	var client *resty.Client
	if gatewayURL != "" {
		client = newRestyClient(gatewayURL, timeout).SetBasicAuth(accountSID, authToken)
	}
	return &SMSChannel{
		httpClient: client,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		logger:     logger,
	}
}

// Name 通道名
func (c *SMSChannel) Name() string { return ChannelSMS }

// Configured 网关地址、账号、发送号码齐全
func (c *SMSChannel) Configured() bool {
	return c.httpClient != nil && c.accountSID != "" && c.authToken != "" && c.from != ""
}

// Send 发送短信，subject 会拼在正文前
func (c *SMSChannel) Send(ctx context.Context, recipient, subject, body string) error {
	if !c.Configured() {
		return fmt.Errorf("sms channel not configured")
	}

	text := body
	if subject != "" {
		text = subject + "\n" + body
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   recipient,
			"From": c.from,
			"Body": text,
		}).
		Post(fmt.Sprintf("/Accounts/%s/Messages.json", c.accountSID))
	if err != nil {
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway error: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	c.logger.Debug("SMS sent",
		zap.String("to", recipient),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}

// EmailChannel 邮件 HTTP API（JSON 提交 + Bearer Token）
type EmailChannel struct {
	httpClient *resty.Client
	apiKey     string
	from       string
	logger     *zap.Logger
}

// emailRequest 邮件 API 请求体
type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// NewEmailChannel 创建邮件通道
func NewEmailChannel(apiURL, apiKey, from string, timeout time.Duration, logger *zap.Logger) *EmailChannel {
	var client *resty.Client
	if apiURL != "" {
		client = newRestyClient(apiURL, timeout).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(apiKey)
	}
	return &EmailChannel{
		httpClient: client,
		apiKey:     apiKey,
		from:       from,
		logger:     logger,
	}
}

// Name 通道名
func (c *EmailChannel) Name() string { return ChannelEmail }

// Configured API 地址、密钥、发件人齐全
func (c *EmailChannel) Configured() bool {
	return c.httpClient != nil && c.apiKey != "" && c.from != ""
}

// Send 发送邮件
func (c *EmailChannel) Send(ctx context.Context, recipient, subject, body string) error {
	if !c.Configured() {
		return fmt.Errorf("email channel not configured")
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(emailRequest{
			From:    c.from,
			To:      []string{recipient},
			Subject: subject,
			Text:    body,
		}).
		Post("")
	if err != nil {
		return fmt.Errorf("failed to call email api: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("email api error: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	c.logger.Debug("Email sent",
		zap.String("to", recipient),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
