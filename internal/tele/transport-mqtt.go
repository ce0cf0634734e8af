package tele

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bobbycar-graz/bobbyremote/helpers"
	"github.com/bobbycar-graz/bobbyremote/log2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

type transportMqtt struct {
	log     *log2.Log
	m       mqtt.Client
	topics  Topics
	timeout time.Duration
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, c Config, topics Topics) error {
	self.log = log
	self.topics = topics
	mqttLog := mqttLogger{log.Clone(log2.LInfo)}
	if c.MqttLogDebug {
		mqttLog.SetLevel(log2.LDebug)
		mqtt.DEBUG = mqttLog
	}
	mqtt.ERROR = mqttLog
	mqtt.CRITICAL = mqttLog
	mqtt.WARN = mqttLog

	if _, err := url.ParseRequestURI(c.MqttBroker); err != nil {
		return errors.Annotatef(err, "tele broker=%s", c.MqttBroker)
	}
	self.timeout = helpers.IntSecondDefault(c.NetworkTimeoutSec, DefaultNetworkTimeout)
	if self.timeout < time.Second {
		self.timeout = time.Second
	}
	keepAlive := helpers.IntSecondDefault(c.KeepaliveSec, 60*time.Second)
	pingTimeout := helpers.IntSecondDefault(c.PingTimeoutSec, 30*time.Second)

	mopt := mqtt.NewClientOptions().
		AddBroker(c.MqttBroker).
		SetClientID(fmt.Sprintf("bobbyremote-%s", topics.Device)).
		SetUsername(c.MqttUsername).
		SetPassword(c.MqttPassword).
		SetBinaryWill(topics.Connect, []byte{0x00}, 1, true).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetConnectTimeout(self.timeout).
		SetWriteTimeout(self.timeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(DefaultNetworkTimeout).
		SetOrderMatters(false).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	self.m = mqtt.NewClient(mopt)
	// network errors are retried by qworker
	if token := self.m.Connect(); token.WaitTimeout(self.timeout) && token.Error() != nil {
		self.log.Errorf("tele mqtt connect err=%v", token.Error())
	}
	return nil
}

func (self *transportMqtt) Close() {
	if self.m == nil {
		return
	}
	if self.m.IsConnected() {
		self.m.Publish(self.topics.Connect, 1, true, []byte{0x00}).WaitTimeout(self.timeout)
	}
	self.m.Disconnect(uint(self.timeout / time.Millisecond))
}

func (self *transportMqtt) Send(topic string, payload []byte) bool {
	if !self.m.IsConnected() {
		if token := self.m.Connect(); !token.WaitTimeout(self.timeout) || token.Error() != nil {
			return false
		}
	}
	token := self.m.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(self.timeout) {
		self.log.Debugf("tele mqtt publish topic=%s timeout", topic)
		return false
	}
	if err := token.Error(); err != nil {
		self.log.Errorf("tele mqtt publish topic=%s err=%v", topic, err)
		return false
	}
	return true
}

func (self *transportMqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("tele mqtt disconnect err=%v", err)
}

func (self *transportMqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("tele mqtt connect")
	c.Publish(self.topics.Connect, 1, true, []byte{0x01})
}

// mqttLogger adapts log2 to paho logger interface.
type mqttLogger struct{ *log2.Log }

func (l mqttLogger) Println(v ...interface{})               { l.Info(v...) }
func (l mqttLogger) Printf(format string, v ...interface{}) { l.Infof(format, v...) }
