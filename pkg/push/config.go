package push

import (
	"strings"
	"time"
)

type Settings struct {
	RocketMQ RocketMQSettings `yaml:"rocketmq" json:"rocketmq"`
	Redis    RedisSettings    `yaml:"redis" json:"redis"`
}

type RocketMQSettings struct {
	Enabled    string           `yaml:"enabled" json:"enabled"`
	NameServer string           `yaml:"name-server" json:"nameServer"`
	Producer   RocketMQProducer `yaml:"producer" json:"producer"`
	Topic      string           `yaml:"topic" json:"topic"`
	Tag        string           `yaml:"tag" json:"tag"`
}

type RocketMQProducer struct {
	AccessKey string `yaml:"access-key" json:"accessKey"`
	SecretKey string `yaml:"secret-key" json:"secretKey"`
	Group     string `yaml:"group" json:"group"`
}

type RedisSettings struct {
	Enabled  string        `yaml:"enabled" json:"enabled"`
	Host     string        `yaml:"host" json:"host"`
	Port     int           `yaml:"port" json:"port"`
	Database int           `yaml:"database" json:"database"`
	Password string        `yaml:"password" json:"password"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	PoolSize int           `yaml:"pool-size" json:"poolSize"`
}

func (s Settings) WithDefaults() Settings {
	o := s
	o.RocketMQ.Enabled = NormalizeYN(o.RocketMQ.Enabled)
	o.Redis.Enabled = NormalizeYN(o.Redis.Enabled)

	if o.Redis.Port == 0 {
		o.Redis.Port = 6379
	}
	if o.Redis.Timeout == 0 {
		o.Redis.Timeout = 5 * time.Second
	}
	return o
}

// NormalizeYN folds the switch spellings found in settings stores
// (Y/N, true/false, 1/0, on/off) into "Y" or "N". Anything unknown is "N".
func NormalizeYN(v string) string {
	switch strings.TrimSpace(strings.ToUpper(v)) {
	case "Y", "YES", "TRUE", "1", "ON":
		return "Y"
	default:
		return "N"
	}
}

// SplitHostPort adapts "host:port" config values to the Host+Port pair the
// Redis settings expect. A missing or malformed port falls back to 6379.
func SplitHostPort(addr string) (string, int) {
	host := addr
	port := 6379

	for i := 0; i < len(addr); i++ {
		if addr[i] == ':' {
			host = addr[:i]
			p := 0
			for j := i + 1; j < len(addr); j++ {
				ch := addr[j]
				if ch < '0' || ch > '9' {
					break
				}
				p = p*10 + int(ch-'0')
			}
			if p > 0 {
				port = p
			}
			break
		}
	}
	return host, port
}
