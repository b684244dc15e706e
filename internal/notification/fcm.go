package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("fcm credentials not configured")

type FCMConfig struct {
	// ServiceAccountJSON is the base64 encoded service account key.
	ServiceAccountJSON string
	ServiceAccountFile string
	Topic              string
}

// FCMService pushes admin alerts to every device subscribed to one topic.
type FCMService struct {
	client *messaging.Client
	topic  string
	logger zerolog.Logger
}

// NewFCMService prefers base64 credentials and falls back to a key file.
func NewFCMService(ctx context.Context, cfg FCMConfig, logger zerolog.Logger) (*FCMService, error) {
	var opt option.ClientOption

	switch {
	case cfg.ServiceAccountJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.ServiceAccountFile != "":
		if _, err := os.Stat(cfg.ServiceAccountFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", cfg.ServiceAccountFile, err)
		}
		opt = option.WithCredentialsFile(cfg.ServiceAccountFile)
	default:
		return nil, ErrNotConfigured
	}

	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is empty", ErrNotConfigured)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{
		client: client,
		topic:  cfg.Topic,
		logger: logger.With().Str("component", "fcm").Logger(),
	}, nil
}

func (s *FCMService) Notify(ctx context.Context, title, body string, data map[string]string) error {
	id, err := s.client.Send(ctx, newTopicMessage(s.topic, title, body, data))
	if err != nil {
		return fmt.Errorf("fcm send to topic %s failed: %w", s.topic, err)
	}

	s.logger.Debug().Str("message_id", id).Str("topic", s.topic).Msg("push sent")
	return nil
}

func newTopicMessage(topic, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}
}
