// project.go models discovered compose projects and their x-config block.
package project

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ConfigKey is the manifest extension key holding podunit options.
const ConfigKey = "x-config"

// Config holds the recognized x-config options. Zero value is the default.
type Config struct {
	Enabled                 bool
	EnableRemoteIntegration bool
	SecretName              string
	ParamsName              string
}

// Descriptor describes one discovered project.
type Descriptor struct {
	Name         string
	Directory    string
	ManifestPath string
	Config       Config
	Services     []string
	Manifest     map[string]any
}

// ParseConfig extracts Config from a manifest. Unknown options are ignored and
// missing ones keep their defaults.
func ParseConfig(data map[string]any) Config {
	cfg := Config{}
	raw, ok := data[ConfigKey].(map[string]any)
	if !ok {
		return cfg
	}
	for key, val := range raw {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "enabled":
			cfg.Enabled = asBool(val)
		case "enable_remote_integration", "enable_gcp_integration":
			cfg.EnableRemoteIntegration = cfg.EnableRemoteIntegration || asBool(val)
		case "secret_name":
			cfg.SecretName = asString(val)
		case "params_name", "config_name":
			if name := asString(val); name != "" {
				cfg.ParamsName = name
			}
		}
	}
	return cfg
}

func asBool(val any) bool {
	switch typed := val.(type) {
	case bool:
		return typed
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && b
	default:
		return false
	}
}

func asString(val any) string {
	switch typed := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// SecretName is the remote secret to fetch, defaulting to "<project>-secrets".
func (d *Descriptor) SecretName() string {
	if d.Config.SecretName != "" {
		return d.Config.SecretName
	}
	return d.Name + "-secrets"
}

// ParamsName is the remote parameter set, defaulting to "<project>-config".
func (d *Descriptor) ParamsName() string {
	if d.Config.ParamsName != "" {
		return d.Config.ParamsName
	}
	return d.Name + "-config"
}

// ContainerName returns the container_name override for service, or the
// service name itself.
func (d *Descriptor) ContainerName(service string) string {
	services, _ := d.Manifest["services"].(map[string]any)
	svc, _ := services[service].(map[string]any)
	if name, ok := svc["container_name"].(string); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	return service
}

// ContainerNames maps every service to its container name, in service order.
func (d *Descriptor) ContainerNames() []string {
	out := make([]string, 0, len(d.Services))
	for _, svc := range d.Services {
		out = append(out, d.ContainerName(svc))
	}
	return out
}

// Sorted returns descriptors ordered by name.
func Sorted(projects map[string]*Descriptor) []*Descriptor {
	out := make([]*Descriptor, 0, len(projects))
	for _, d := range projects {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted project names.
func Names(projects map[string]*Descriptor) []string {
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled returns the enabled projects ordered by name.
func Enabled(projects map[string]*Descriptor) []*Descriptor {
	var out []*Descriptor
	for _, d := range Sorted(projects) {
		if d.Config.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Locate resolves name to a project. A project directory with that exact name
// wins; otherwise the first project in name order that declares a service or
// container called name is returned.
func Locate(projects map[string]*Descriptor, name string) (*Descriptor, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	if d, ok := projects[name]; ok {
		return d, true
	}
	for _, d := range Sorted(projects) {
		for _, svc := range d.Services {
			if svc == name || d.ContainerName(svc) == name {
				return d, true
			}
		}
	}
	return nil, false
}
