package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// Route 一个通道及其收件人
type Route struct {
	Channel    Channel
	Recipients []string
}

// Dispatcher 告警通知调度器
// 任何通道失败都不会向调用方抛错，结果逐条写入 DeliveryResult
type Dispatcher struct {
	routes   []Route
	fallback Channel
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher 按配置创建调度器
func NewDispatcher(cfg *config.Config, logger *zap.Logger) *Dispatcher {
	n := cfg.Notify
	sms := NewSMSChannel(n.SMS.GatewayURL, n.SMS.AccountSID, n.SMS.AuthToken, n.SMS.From, n.Timeout, logger)
	email := NewEmailChannel(n.Email.APIURL, n.Email.APIKey, n.Email.From, n.Timeout, logger)

	d := NewDispatcherWithChannels(logger,
		Route{Channel: sms, Recipients: n.SMS.To},
		Route{Channel: email, Recipients: n.Email.To},
	)
	switch n.Fallback {
	case ChannelSMS:
		d.fallback = sms
	case ChannelEmail:
		d.fallback = email
	}
	return d
}

// NewDispatcherWithChannels 用指定通道创建调度器
func NewDispatcherWithChannels(logger *zap.Logger, routes ...Route) *Dispatcher {
	return &Dispatcher{
		routes: routes,
		logger: logger,
		now:    time.Now,
	}
}

// SetFallback 设置主通道失败时的备用通道
func (d *Dispatcher) SetFallback(channel Channel) {
	d.fallback = channel
}

// recipientsOf 备用通道的收件人
func (d *Dispatcher) recipientsOf(channel Channel) []string {
	for _, r := range d.routes {
		if r.Channel == channel {
			return r.Recipients
		}
	}
	return nil
}

// ComposeSubject 告警标题
func ComposeSubject(alarm *models.AlarmEvent) string {
	if alarm.EventType == models.EventFall {
		return "[ALERT] Fall detected"
	}
	return fmt.Sprintf("[%s] %s %s", alarm.AlarmLevel, alarm.Metric, alarm.Status)
}

// ComposeMessage 告警正文
func ComposeMessage(alarm *models.AlarmEvent, patientName string, now time.Time) string {
	var b strings.Builder
	who := patientName
	if who == "" {
		who = alarm.PatientID
	}
	if who != "" {
		fmt.Fprintf(&b, "Patient: %s\n", who)
	}
	fmt.Fprintf(&b, "Device: %s\n", alarm.DeviceID)
	b.WriteString(alarm.Message)
	b.WriteString("\n")

	at := alarm.TriggeredAt
	if at.IsZero() {
		at = now
	}
	fmt.Fprintf(&b, "Time: %s", at.UTC().Format(time.RFC3339))
	return b.String()
}

// NotifyAlarm 向所有通道的所有收件人发送告警
func (d *Dispatcher) NotifyAlarm(ctx context.Context, alarm *models.AlarmEvent, patientName string) []models.DeliveryResult {
	subject := ComposeSubject(alarm)
	body := ComposeMessage(alarm, patientName, d.now())

	var results []models.DeliveryResult
	for _, r := range d.routes {
		for _, recipient := range r.Recipients {
			results = append(results, d.deliver(ctx, r.Channel, recipient, subject, body))
		}
	}

	if len(results) == 0 {
		d.logger.Warn("No notification recipients configured, alarm logged only",
			zap.String("event_id", alarm.EventID),
			zap.String("message", alarm.Message),
		)
		results = append(results, models.DeliveryResult{
			Channel: "log",
			Status:  models.DeliverySimulated,
			Detail:  "no recipients configured",
		})
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, recipient, subject, body string) models.DeliveryResult {
	result := models.DeliveryResult{Channel: channel.Name(), Recipient: recipient}

	if !channel.Configured() {
		d.logger.Info("Simulated notification",
			zap.String("channel", channel.Name()),
			zap.String("recipient", recipient),
			zap.String("subject", subject),
		)
		result.Status = models.DeliverySimulated
		return result
	}

	err := channel.Send(ctx, recipient, subject, body)
	if err == nil {
		result.Status = models.DeliverySent
		return result
	}

	d.logger.Warn("Notification failed",
		zap.String("channel", channel.Name()),
		zap.String("recipient", recipient),
		zap.Error(err),
	)
	result.Status = models.DeliveryFailed
	result.Detail = err.Error()

	if d.fallback == nil || d.fallback == channel || !d.fallback.Configured() {
		return result
	}

	for _, alt := range d.recipientsOf(d.fallback) {
		if ferr := d.fallback.Send(ctx, alt, subject, body); ferr != nil {
			d.logger.Warn("Fallback notification failed",
				zap.String("channel", d.fallback.Name()),
				zap.String("recipient", alt),
				zap.Error(ferr),
			)
			continue
		}
		result.Status = models.DeliveryFallback
		result.Detail = fmt.Sprintf("%s failed (%v); delivered via %s to %s", channel.Name(), err, d.fallback.Name(), alt)
		return result
	}
	return result
}
