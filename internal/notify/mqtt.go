package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTopicPrefix MQTT 主题前缀，完整主题为 <prefix>/<dataset>/<event type>
const DefaultTopicPrefix = "examseat/roster"

// mqttClient 由 common/mqtt.Client 实现
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// MQTTPublisher 把名单事件推送给考场终端
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

func NewMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// Topic 返回事件对应的主题
func (p *MQTTPublisher) Topic(ev Event) string {
	return p.prefix + "/" + ev.Dataset + "/" + string(ev.Type)
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.client.Publish(p.Topic(ev), p.client.QoS(), false, payload)
}
