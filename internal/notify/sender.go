package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender доставляет уведомление по одному каналу
type Sender interface {
	Name() string
	Send(ctx context.Context, notice *Notice) error
}

// LogSender только пишет уведомление в лог
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, notice *Notice) error {
	s.logger.Info("Notice",
		zap.String("notice_id", notice.ID.String()),
		zap.Int64("booking_id", notice.BookingID),
		zap.Int64("recipient_id", notice.RecipientID),
		zap.String("recipient_address", notice.RecipientAddress),
		zap.String("template", notice.TemplateKey),
		zap.String("text", Render(notice)),
	)
	return nil
}

// messenger часть *bot.Bot, которая нужна отправителю в Telegram
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSender отправляет уведомление в чат, адрес получателя это chat ID
type TelegramSender struct {
	bot messenger
}

func NewTelegramSender(b *bot.Bot) *TelegramSender {
	return &TelegramSender{bot: b}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(ctx context.Context, notice *Notice) error {
	if notice.RecipientAddress == "" {
		return fmt.Errorf("recipient %d has no contact address", notice.RecipientID)
	}

	// Числовой адрес это chat ID, иначе username канала вида @name
	var chatID any = notice.RecipientAddress
	if id, err := strconv.ParseInt(notice.RecipientAddress, 10, 64); err == nil {
		chatID = id
	}

	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   Render(notice),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSender кладёт уведомление в список-outbox, откуда его забирает внешний доставщик
type RedisSender struct {
	client listPusher
	key    string
}

func NewRedisSender(client *redis.Client, key string) *RedisSender {
	return &RedisSender{client: client, key: key}
}

func (s *RedisSender) Name() string { return "redis" }

func (s *RedisSender) Send(ctx context.Context, notice *Notice) error {
	payload, err := json.Marshal(struct {
		*Notice
		Text string `json:"text"`
	}{notice, Render(notice)})
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("push notice to %s: %w", s.key, err)
	}
	return nil
}
