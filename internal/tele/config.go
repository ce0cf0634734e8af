package tele

type Config struct { //nolint:maligned
	Enabled  bool `hcl:"enable"`
	LogDebug bool `hcl:"log_debug"`

	MqttBroker        string `hcl:"mqtt_broker"`
	MqttUsername      string `hcl:"mqtt_username"`
	MqttPassword      string `hcl:"mqtt_password"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	PingTimeoutSec    int    `hcl:"ping_timeout_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`

	// spq directory, required when enabled
	PersistPath string `hcl:"persist_path"`
	// topics are <prefix>/<device>/<kind>, default "bobby"
	TopicPrefix string `hcl:"topic_prefix"`
	// "json" (default) or "proto"
	PayloadFormat string `hcl:"payload_format"`
	// livedata and info are queued at most once per interval, default 1000
	MinIntervalMillis int `hcl:"min_interval_ms"`
}
