package consul

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
)

type Registration struct {
	Name    string
	Address string
	Port    int
	// HealthURL is polled by consul when set, otherwise the TCP port is.
	HealthURL string
}

func (r *Registration) Id() string {
	return fmt.Sprintf("%s-%s", r.Name, r.addr())
}

func (r *Registration) addr() string {
	return net.JoinHostPort(r.Address, strconv.Itoa(r.Port))
}

type Client interface {
	RegisterService(reg *Registration) error
	DeregisterService(id string) error
}

type client struct {
	cfg    *Config
	client *api.Client
}

func NewClient(cfg *Config) (Client, error) {
	cl, err := api.NewClient(cfg.toApiConfig())
	if err != nil {
		return nil, errors.Wrap(err, "create consul client")
	}
	return &client{client: cl, cfg: cfg}, nil
}

func (c *client) RegisterService(reg *Registration) error {
	if err := c.client.Agent().ServiceRegister(c.cfg.toApiRegistration(reg)); err != nil {
		return errors.Wrapf(err, "register service %s", reg.Id())
	}
	return nil
}

func (c *client) DeregisterService(id string) error {
	if err := c.client.Agent().ServiceDeregister(id); err != nil {
		return errors.Wrapf(err, "deregister service %s", id)
	}
	return nil
}

func (c *Config) toApiRegistration(reg *Registration) *api.AgentServiceRegistration {
	return &api.AgentServiceRegistration{
		ID:      reg.Id(),
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    c.Tags,
		Check:   c.Check.toApiCheck(reg),
	}
}
