// Package config provides configuration structures for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"go.keploy.io/tcxchain/pkg/models"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Interface   string     `json:"iface" yaml:"iface" mapstructure:"iface"`
	Debug       bool       `json:"debug" yaml:"debug" mapstructure:"debug"`
	ConfigPath  string     `json:"configPath" yaml:"configPath" mapstructure:"configPath"`
	ObjectPath  string     `json:"object" yaml:"object" mapstructure:"object"`
	RingBufSize uint32     `json:"ringBufSize" yaml:"ringBufSize" mapstructure:"ringBufSize"`
	MetricsAddr string     `json:"metricsAddr" yaml:"metricsAddr" mapstructure:"metricsAddr"`
	Instances   []Instance `json:"instances" yaml:"instances" mapstructure:"instances"`
	Replay      Replay     `json:"replay" yaml:"replay" mapstructure:"replay"`
}

// Instance is one classifier on the ingress hook. Program defaults to Name.
type Instance struct {
	Name    string `json:"name" yaml:"name" mapstructure:"name"`
	Program string `json:"program" yaml:"program" mapstructure:"program"`
	Order   string `json:"order" yaml:"order" mapstructure:"order"`
}

type Replay struct {
	PcapPath string `json:"pcap" yaml:"pcap" mapstructure:"pcap"`
}

// kernel program names are capped at 15 characters, "tcx_" takes four
var instanceName = regexp.MustCompile(`^[A-Za-z0-9_]{1,11}$`)

func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("%w: interface name is empty", ErrInvalidConfig)
	}
	if c.RingBufSize != 0 {
		page := uint32(os.Getpagesize())
		if c.RingBufSize%page != 0 || c.RingBufSize&(c.RingBufSize-1) != 0 {
			return fmt.Errorf("%w: ringBufSize %d must be a power of two multiple of the page size %d", ErrInvalidConfig, c.RingBufSize, page)
		}
	}
	_, err := c.InstanceSpecs()
	return err
}

// InstanceSpecs converts the configured instances, checking names and orders.
// At most one instance may ask for the first slot and at most one for the
// last, and a relative order must name an instance declared before it.
func (c *Config) InstanceSpecs() ([]models.InstanceSpec, error) {
	if len(c.Instances) == 0 {
		return nil, fmt.Errorf("%w: no instances configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Instances))
	slots := make(map[models.OrderKind]string)
	specs := make([]models.InstanceSpec, 0, len(c.Instances))
	for i, inst := range c.Instances {
		if !instanceName.MatchString(inst.Name) {
			return nil, fmt.Errorf("%w: instance name %q must match %s", ErrInvalidConfig, inst.Name, instanceName)
		}
		if seen[inst.Name] {
			return nil, fmt.Errorf("%w: duplicate instance %q", ErrInvalidConfig, inst.Name)
		}
		order, err := models.ParseOrder(inst.Order)
		if err != nil {
			return nil, fmt.Errorf("%w: instance %q: %w", ErrInvalidConfig, inst.Name, err)
		}
		if order.Relative() && !seen[order.Peer] {
			return nil, fmt.Errorf("%w: instance %q is ordered %s but %q is not declared before it", ErrInvalidConfig, inst.Name, order, order.Peer)
		}
		if !order.Relative() {
			if holder, ok := slots[order.Kind]; ok {
				return nil, fmt.Errorf("%w: instances %q and %q both claim %s", ErrInvalidConfig, holder, inst.Name, order)
			}
			slots[order.Kind] = inst.Name
		}
		seen[inst.Name] = true
		program := inst.Program
		if program == "" {
			program = inst.Name
		}
		specs = append(specs, models.InstanceSpec{
			ID:      uint32(i),
			Name:    inst.Name,
			Program: program,
			Order:   order,
		})
	}
	return specs, nil
}
