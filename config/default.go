package config

import (
	yaml3 "gopkg.in/yaml.v3"
)

// defaultConfig attaches the two stock instances to eth0 ingress, "first" at
// the head of the chain and "last" at its tail.
var defaultConfig = `
iface: eth0
debug: false
configPath: "."
object: ""
ringBufSize: 65536
metricsAddr: ""
instances:
  - name: first
    program: first
    order: first
  - name: last
    program: last
    order: last
replay:
  pcap: ""
`

func GetDefaultConfig() string {
	return defaultConfig
}

func New() *Config {
	config := &Config{}
	err := yaml3.Unmarshal([]byte(defaultConfig), config)
	if err != nil {
		panic(err)
	}
	return config
}
