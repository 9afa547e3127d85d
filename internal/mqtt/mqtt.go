package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"haca/internal/models"
	"haca/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Topics below the configured prefix
const (
	TopicHealth    = "health"
	TopicIssuesNew = "issues/new"
	TopicStatus    = "status"
)

const publishTimeout = 5 * time.Second

// NewMQTTClient creates an MQTT client. The status topic carries a retained
// offline will so consumers notice when the auditor goes away.
func NewMQTTClient(broker, clientID, prefix string) (mqtt.Client, error) {
	log := utils.Logger("MQTT")
	status := prefix + "/" + TopicStatus
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(status, "offline", 1, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Infof("Connected to %s", broker)
			c.Publish(status, 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("Connection lost: %v", err)
		})
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// Client is the part of mqtt.Client the publisher needs
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends scan outcomes to MQTT
type Publisher struct {
	client Client
	prefix string
}

// NewPublisher creates a publisher writing below prefix, e.g. "haca"
func NewPublisher(client Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix}
}

// Topic returns the full topic name of a suffix
func (p *Publisher) Topic(suffix string) string {
	return p.prefix + "/" + suffix
}

func (p *Publisher) publish(suffix string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(suffix), 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", p.Topic(suffix))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.Topic(suffix), err)
	}
	return nil
}

// PublishSummary publishes the health score and totals, retained so new
// subscribers see the latest scan immediately
func (p *Publisher) PublishSummary(summary models.ScanSummary) error {
	return p.publish(TopicHealth, true, summary)
}

// PublishNewIssues publishes issues first seen in the latest scan
func (p *Publisher) PublishNewIssues(issues []models.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	utils.Logger("MQTT").Infof("Publishing %d new issues", len(issues))
	return p.publish(TopicIssuesNew, false, map[string]any{
		"count":  len(issues),
		"issues": issues,
	})
}
