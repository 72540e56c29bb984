package channel

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// SMTPConfig 邮件通道配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailChannel 通过 SMTP 投递，address 为收件人邮箱
type EmailChannel struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewEmailChannel(cfg SMTPConfig, logger *zap.Logger) *EmailChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailChannel{cfg: cfg, logger: logger.Named("channel")}
}

func (c *EmailChannel) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dialer := mail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	// SMTP 连接不接受 ctx，用截止时间约束拨号和读写
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Timeout = time.Until(deadline)
	}

	if err := dialer.DialAndSend(c.buildMessage(address, subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug("email sent", zap.String("address", address))
	return nil
}

func (c *EmailChannel) buildMessage(to, subject, body string) *mail.Message {
	message := mail.NewMessage()
	message.SetHeader("From", c.cfg.From)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)
	return message
}
