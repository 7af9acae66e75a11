package consul

import "github.com/hashicorp/consul/api"

// CheckConfig holds consul check timings as consul duration strings.
type CheckConfig struct {
	Interval        string `kdl:"interval"`
	Timeout         string `kdl:"timeout"`
	DeregisterAfter string `kdl:"deregister-after"`
}

type Config struct {
	Address    string       `kdl:"address"`
	Datacenter string       `kdl:"datacenter"`
	Token      string       `kdl:"token"`
	Tags       []string     `kdl:"tags"`
	Check      *CheckConfig `kdl:"check"`
}

func (c *Config) toApiConfig() *api.Config {
	cfg := api.DefaultConfig()
	if c.Address != "" {
		cfg.Address = c.Address
	}
	if c.Datacenter != "" {
		cfg.Datacenter = c.Datacenter
	}
	if c.Token != "" {
		cfg.Token = c.Token
	}
	return cfg
}

// toApiCheck probes the HTTP health URL when there is one and falls back to
// a plain TCP connect against the crack port.
func (c *CheckConfig) toApiCheck(reg *Registration) *api.AgentServiceCheck {
	if c == nil {
		return nil
	}
	check := &api.AgentServiceCheck{
		Interval:                       c.Interval,
		Timeout:                        c.Timeout,
		DeregisterCriticalServiceAfter: c.DeregisterAfter,
	}
	if reg.HealthURL != "" {
		check.HTTP = reg.HealthURL
	} else {
		check.TCP = reg.addr()
	}
	return check
}
