package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/helpers"
	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

type transportMqtt struct {
	log       *log2.Log
	onCommand func([]byte) bool
	m         mqtt.Client
	mopt      *mqtt.ClientOptions
	stopCh    chan struct{}

	topicPrefix  string
	topicState   string
	topicError   string
	topicCommand string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, onCommand CommandCallback, willPayload []byte) error {
	self.log = log
	self.stopCh = make(chan struct{})
	mqttLog := self.log.Clone(log2.LDebug)
	mqttLog.SetPrefix("tele.mqtt ")
	mqtt.CRITICAL = mqttLog.Stdlib()
	mqtt.ERROR = mqttLog.Stdlib()
	mqtt.WARN = mqttLog.Stdlib()
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog.Stdlib()
	}

	mqttClientId := fmt.Sprintf("sc2remap-%d", teleConfig.InstanceId)
	credFun := func() (string, string) {
		return mqttClientId, teleConfig.MqttPassword
	}

	self.onCommand = func(payload []byte) bool {
		return onCommand(ctx, payload)
	}
	self.topicPrefix = fmt.Sprintf("sc2remap/%d", teleConfig.InstanceId)
	self.topicState = fmt.Sprintf("%s/w/1s", self.topicPrefix)
	self.topicError = fmt.Sprintf("%s/w/1e", self.topicPrefix)
	self.topicCommand = fmt.Sprintf("%s/r/c", self.topicPrefix)

	networkTimeout := helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(teleConfig.KeepaliveSec, networkTimeout/2)

	defaultHandler := func(_ mqtt.Client, msg mqtt.Message) {
		self.log.Errorf("unexpected mqtt message: %v", msg)
	}

	tlsconf := new(tls.Config)
	if teleConfig.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := os.ReadFile(teleConfig.TlsCaFile)
		if err != nil {
			return errors.Annotatef(err, "tls_ca_file=%s", teleConfig.TlsCaFile)
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}
	if teleConfig.TlsPsk != "" {
		copy(tlsconf.SessionTicketKey[:], helpers.MustHex(teleConfig.TlsPsk))
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(false).
		SetClientID(mqttClientId).
		SetConnectTimeout(connectTimeout).
		SetCredentialsProvider(credFun).
		SetDefaultPublishHandler(defaultHandler).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetMessageChannelDepth(1).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout)
	self.m = mqtt.NewClient(self.mopt)

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
}

func (self *transportMqtt) SendState(payload []byte) bool {
	self.log.Debugf("transport sendstate payload=%x", payload)
	// the caller may reuse payload while a timed out publish is still in flight
	msg := make([]byte, len(payload))
	copy(msg, payload)
	t := self.m.Publish(self.topicState, 1, true, msg)
	return self.tokenWait(t, "publish state") == nil
}

func (self *transportMqtt) SendError(payload []byte) bool {
	t := self.m.Publish(self.topicError, 1, false, payload)
	return self.tokenWait(t, "publish error") == nil
}

func (self *transportMqtt) online() {
	if self.m.IsConnected() {
		return
	}

	for self.isRunning() {
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			break // success path
		}
		time.Sleep(1 * time.Second)
	}

	for self.isRunning() {
		t := self.m.Subscribe(self.topicCommand, 1, self.mqttSubCommand)
		if self.tokenWait(t, "subscribe:"+self.topicCommand) == nil {
			break // success path
		}
		time.Sleep(1 * time.Second)
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) mqttSubCommand(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	if self.onCommand(payload) {
		msg.Ack()
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.mopt.WriteTimeout) {
		err := errors.Errorf("%s timeout", tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
